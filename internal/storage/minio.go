package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/scan-splitter/internal/config"
	"github.com/ironsheep/scan-splitter/internal/detection"
	"github.com/ironsheep/scan-splitter/internal/imaging"
)

// cropQuality is the JPEG quality of archived full-resolution crops.
const cropQuality = 90

// objectStore is the subset of *minio.Client the archive uses.
type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// CropStore uploads full-resolution crops of detected photos to MinIO.
type CropStore struct {
	client objectStore
	bucket string
}

func NewCropStore(cfg config.MinIOConfig) (*CropStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &CropStore{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// CropKey returns the object key for one region of one request.
func CropKey(requestID, regionID string) string {
	return fmt.Sprintf("crops/%s/%s.jpg", requestID, regionID)
}

// EnsureBucket creates the bucket if it doesn't exist.
func (s *CropStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}
	return nil
}

// PutObject uploads data under the given key.
func (s *CropStore) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// Archive crops every region out of img and uploads it as JPEG.
//
// Every region is attempted; the first error is returned after the rest have
// been tried.
func (s *CropStore) Archive(ctx context.Context, requestID string, img image.Image, regions []detection.Region) error {
	var firstErr error
	for _, r := range regions {
		if err := ctx.Err(); err != nil {
			return err
		}

		key := CropKey(requestID, r.ID)
		data, err := imaging.CropJPEG(img, r.Rect(), cropQuality)
		if err == nil {
			err = s.PutObject(ctx, key, data, "image/jpeg")
		}
		if err != nil {
			logrus.WithError(err).WithField("key", key).Warn("Failed to archive crop")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Ping checks MinIO connectivity.
func (s *CropStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}
