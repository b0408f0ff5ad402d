package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ironsheep/scan-splitter/internal/segment"
)

type RouterConfig struct {
	Segmenter *segment.Segmenter

	// Archive is checked by /readyz when set.
	Archive Pinger

	// MaxUploadBytes limits the request body of photo endpoints.
	MaxUploadBytes int64
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints
	systemH := NewSystemHandler(cfg.Archive)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Photos
	photoH := NewPhotoHandler(cfg.Segmenter, cfg.MaxUploadBytes)
	v1 := r.Group("/v1")
	v1.POST("/photos/detect", photoH.Detect)
	v1.POST("/photos/annotate", photoH.Annotate)

	return r
}
