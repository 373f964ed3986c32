package blob

import (
	"context"
	"io"
	"testing"

	"resultsdash/internal/config"
)

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()
	fsStore, err := Open(ctx, "fs", config.Blob{FSRoot: t.TempDir()})
	if err != nil || fsStore.Driver() != DriverFilesystem {
		t.Fatalf("fs open: %v", err)
	}
	s3Store, err := Open(ctx, "s3", config.Blob{S3: config.S3{Bucket: "results", Endpoint: "http://localhost:9000", PathStyle: true}})
	if err != nil || s3Store.Driver() != DriverS3 {
		t.Fatalf("s3 open: %v", err)
	}
	if _, err := Open(ctx, "s3", config.Blob{}); err == nil {
		t.Fatalf("expected s3 bucket error")
	}
	for _, driver := range []string{"memory", "ftp"} {
		if _, err := Open(ctx, driver, config.Blob{}); err == nil {
			t.Fatalf("expected unknown driver error for %s", driver)
		}
	}
}

func TestMockS3Get(t *testing.T) {
	store := NewMockS3ForTests(map[string][]byte{"results.csv": []byte("a,b\n")})
	info, rc, err := store.Get(context.Background(), "results.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = rc.Close() }()
	body, _ := io.ReadAll(rc)
	if string(body) != "a,b\n" || info.Size != 4 {
		t.Fatalf("unexpected object %q %+v", body, info)
	}
}
