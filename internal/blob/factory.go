package blob

import (
	"context"
	"fmt"
	"os"

	"battcore/internal/infra/blob/fs"
	"battcore/internal/infra/blob/memory"
	"battcore/internal/infra/blob/s3"
)

// Open selects a blob.Store implementation using environment variables.
//
//	BATTCORE_BLOB_DRIVER: fs|s3|memory (default fs)
//	BATTCORE_BLOB_FS_ROOT: directory root when driver=fs (default ./artifacts)
//	(S3 specific variables documented in the s3 package)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("BATTCORE_BLOB_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFilesystem(os.Getenv("BATTCORE_BLOB_FS_ROOT"))
	case DriverS3:
		return OpenS3FromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// NewFilesystem returns a filesystem-backed store rooted at dir (defaults to
// ./artifacts when empty).
func NewFilesystem(dir string) (Store, error) {
	return fs.New(dir)
}

// NewMemory returns an in-memory store.
func NewMemory() Store {
	return memory.New()
}

// OpenS3FromEnv constructs an S3 store from the process environment.
func OpenS3FromEnv(ctx context.Context) (Store, error) {
	return s3.OpenFromEnv(ctx)
}
