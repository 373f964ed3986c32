package blob

import (
	"context"
	"fmt"

	"resultsdash/internal/config"
)

// Open selects a blob.Store for the configured source driver (fs or s3).
func Open(ctx context.Context, driver string, cfg config.Blob) (Store, error) {
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			PathStyle:       cfg.S3.PathStyle,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
