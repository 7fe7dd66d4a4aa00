package blob

import (
	"context"
	"fmt"
)

// Config selects and parameterises a blob backend.
//
//	Driver: fs|s3|memory (default fs)
//	FSRoot: directory root when Driver=fs (default ./blobdata)
//	S3:     bucket/region/endpoint when Driver=s3
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// Open constructs the blob.Store described by cfg.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
