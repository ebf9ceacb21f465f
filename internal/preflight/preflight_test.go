package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"photowall/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryReadable("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckPhotoSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if result := CheckPhotoSource(cfg); result.Passed || result.Detail != "no images found" {
		t.Fatalf("expected empty library failure, got %+v", result)
	}

	testsupport.WritePhotoTree(t, cfg.Paths.PhotoDir, "trip/a.png")
	result := CheckPhotoSource(cfg)
	if !result.Passed || !strings.Contains(result.Detail, "trip/a.png") {
		t.Fatalf("expected pass, got %+v", result)
	}
}

func TestCheckBindAddress(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:7491": true,
		"localhost:80":   true,
		":9000":          true,
		"nope":           false,
		"127.0.0.1:http": false,
		"bad host:1":     false,
	}
	for bind, want := range cases {
		if got := CheckBindAddress(bind).Passed; got != want {
			t.Errorf("CheckBindAddress(%q) = %v, want %v", bind, got, want)
		}
	}
}

func TestCheckMetricsEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if result := CheckMetricsEndpoint(context.Background(), srv.URL); !result.Passed {
		t.Fatalf("expected pass, got %+v", result)
	}
	if result := CheckMetricsEndpoint(context.Background(), ""); !result.Passed || result.Detail != "Disabled" {
		t.Fatalf("expected disabled pass, got %+v", result)
	}

	srv.Close()
	if result := CheckMetricsEndpoint(context.Background(), srv.URL); result.Passed {
		t.Fatal("expected failure for stopped server")
	}
}

func TestRunAllReportsFailures(t *testing.T) {
	if RunAll(context.Background(), nil) != nil {
		t.Fatal("expected nil results for nil config")
	}

	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	failed := Failed(RunAll(context.Background(), cfg))
	if len(failed) != 1 || failed[0].Name != "Photo library" {
		t.Fatalf("expected only the photo library to fail, got %+v", failed)
	}

	testsupport.WritePhotoTree(t, cfg.Paths.PhotoDir, "a.png")
	if failed := Failed(RunAll(context.Background(), cfg)); len(failed) != 0 {
		t.Fatalf("unexpected failures %+v", failed)
	}
}
