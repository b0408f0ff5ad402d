package observability

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// SetupLogger configures the standard logrus logger.
//
// format is "json" or "text"; level is any logrus level name and falls back
// to info when it does not parse. Output always goes to stderr so the MCP
// transport can own stdout.
func SetupLogger(level, format string) {
	setupLogger(logrus.StandardLogger(), os.Stderr, level, format)
}

func setupLogger(logger *logrus.Logger, out io.Writer, level, format string) {
	logger.SetOutput(out)

	if strings.EqualFold(format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logger.WithField("level", level).Warn("Unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
}
