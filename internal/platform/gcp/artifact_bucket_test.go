package gcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/articleforge-backend/internal/modules/articles/artifacts"
	"github.com/yungbote/articleforge-backend/internal/platform/logger"
)

func TestArtifactBucketURL(t *testing.T) {
	cases := []struct {
		name string
		b    *ArtifactBucket
		key  string
		want string
	}{
		{
			name: "gcs default",
			b:    &ArtifactBucket{bucket: "charts"},
			key:  "c1_abc.png",
			want: "https://storage.googleapis.com/charts/c1_abc.png",
		},
		{
			name: "prefix",
			b:    &ArtifactBucket{bucket: "charts", prefix: "articles"},
			key:  "/c1_abc.png",
			want: "https://storage.googleapis.com/charts/articles/c1_abc.png",
		},
		{
			name: "cdn",
			b:    &ArtifactBucket{bucket: "charts", cdnDomain: "cdn.example.com"},
			key:  "c1_abc.png",
			want: "https://cdn.example.com/c1_abc.png",
		},
		{
			name: "public base",
			b:    &ArtifactBucket{bucket: "charts", publicBaseURL: "http://localhost:4443"},
			key:  "c1_abc.png",
			want: "http://localhost:4443/charts/c1_abc.png",
		},
		{
			name: "emulator media endpoint",
			b:    &ArtifactBucket{bucket: "charts", prefix: "a/b", mode: ObjectStorageModeGCSEmulator, emulatorHost: "http://fake-gcs:4443"},
			key:  "c1.png",
			want: "http://fake-gcs:4443/storage/v1/b/charts/o/a%2Fb%2Fc1.png?alt=media",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.b.URL(tc.key); got != tc.want {
				t.Fatalf("URL: want=%q got=%q", tc.want, got)
			}
		})
	}
}

func TestArtifactBucketURLForScope(t *testing.T) {
	b := &ArtifactBucket{bucket: "uploads", prefix: "articles"}
	if got := b.URLForScope("/art-1/", "foo.png"); got != "https://storage.googleapis.com/uploads/articles/art-1/foo.png" {
		t.Fatalf("URLForScope: got=%q", got)
	}
}

func TestContentTypeForKey(t *testing.T) {
	for key, want := range map[string]string{
		"a.PNG":   "image/png",
		"b.jpeg":  "image/jpeg",
		"c.svg":   "image/svg+xml",
		"d.bin":   "application/octet-stream",
		"noext":   "application/octet-stream",
		"e.webp ": "image/webp",
	} {
		if got := contentTypeForKey(key); got != want {
			t.Fatalf("contentTypeForKey(%q): want=%q got=%q", key, want, got)
		}
	}
}

func TestArtifactBucketEmulatorCreateOrFail(t *testing.T) {
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("AF_RUN_GCS_EMULATOR_INTEGRATION")), "true") {
		t.Skip("set AF_RUN_GCS_EMULATOR_INTEGRATION=true to run emulator integration tests")
	}
	emulatorHost := strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST"))
	if emulatorHost == "" {
		emulatorHost = "http://127.0.0.1:4443"
	}
	emulatorHost = strings.TrimRight(emulatorHost, "/")
	if !isEmulatorReachable(emulatorHost) {
		t.Skipf("storage emulator not reachable at %s", emulatorHost)
	}

	bucketName := fmt.Sprintf("af-it-charts-%d", time.Now().UnixNano())
	createBucketIfMissing(t, emulatorHost, bucketName)

	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	defer log.Sync()

	ctx := context.Background()
	b, err := NewArtifactBucket(ctx, log, ObjectStorageConfig{
		Mode:         ObjectStorageModeGCSEmulator,
		EmulatorHost: emulatorHost,
		Bucket:       bucketName,
		Prefix:       "it",
	})
	if err != nil {
		t.Fatalf("NewArtifactBucket: %v", err)
	}
	defer b.Close()

	art, err := b.Create(ctx, "c1_0123456789.png", "image/png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.Contains(art.URL, "it%2Fc1_0123456789.png") {
		t.Fatalf("unexpected url %q", art.URL)
	}
	if _, err := b.Create(ctx, "c1_0123456789.png", "image/png", []byte("other")); !errors.Is(err, artifacts.ErrArtifactExists) {
		t.Fatalf("second Create: want ErrArtifactExists got %v", err)
	}
	if _, err := b.Create(ctx, "art-1/foo.png", "image/png", []byte("upload")); err != nil {
		t.Fatalf("Create upload: %v", err)
	}

	names, err := b.ListNames(ctx, "art-1")
	if err != nil {
		t.Fatalf("ListNames: %v", err)
	}
	if !slices.Equal(names, []string{"foo.png"}) {
		t.Fatalf("ListNames: got=%v", names)
	}
}

func isEmulatorReachable(emulatorHost string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(emulatorHost + "/storage/v1/b?project=local-dev")
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 500
}

func createBucketIfMissing(t *testing.T, emulatorHost string, bucket string) {
	t.Helper()
	payload, err := json.Marshal(map[string]string{"name": bucket})
	if err != nil {
		t.Fatalf("json.Marshal(bucket): %v", err)
	}
	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequest(http.MethodPost, emulatorHost+"/storage/v1/b?project=local-dev", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("http.NewRequest(create bucket): %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("create bucket %q: %v", bucket, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusConflict {
		return
	}
	body, _ := io.ReadAll(resp.Body)
	t.Fatalf("create bucket %q failed: status=%d body=%s", bucket, resp.StatusCode, strings.TrimSpace(string(body)))
}
