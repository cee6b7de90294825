package gcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/yungbote/articleforge-backend/internal/modules/articles/artifacts"
	"github.com/yungbote/articleforge-backend/internal/platform/logger"
)

// ArtifactBucket stores chart artifacts in a GCS bucket and lists the
// uploads available to an article. Object names are "<prefix>/<key>".
type ArtifactBucket struct {
	log           *logger.Logger
	client        *storage.Client
	mode          ObjectStorageMode
	emulatorHost  string
	bucket        string
	prefix        string
	cdnDomain     string
	publicBaseURL string
}

func NewArtifactBucket(ctx context.Context, log *logger.Logger, cfg ObjectStorageConfig) (*ArtifactBucket, error) {
	if err := ValidateObjectStorageConfig(cfg); err != nil {
		return nil, fmt.Errorf("validate object storage config: %w", err)
	}
	serviceLog := log.With("service", "ArtifactBucket")

	client, err := newStorageClientForMode(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	publicBase, publicBaseSource := cfg.publicBaseURL()

	serviceLog.Info(
		"Object storage initialized",
		"mode", cfg.Mode,
		"mode_source", cfg.ModeSource(),
		"emulator_host", cfg.EmulatorHost,
		"public_base_source", publicBaseSource,
		"public_base_url", publicBase,
		"bucket", cfg.Bucket,
		"prefix", cfg.Prefix,
	)

	return &ArtifactBucket{
		log:           serviceLog,
		client:        client,
		mode:          cfg.Mode,
		emulatorHost:  strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/"),
		bucket:        cfg.Bucket,
		prefix:        strings.Trim(cfg.Prefix, "/"),
		cdnDomain:     strings.TrimSpace(cfg.CDNDomain),
		publicBaseURL: publicBase,
	}, nil
}

func newStorageClientForMode(ctx context.Context, cfg ObjectStorageConfig) (*storage.Client, error) {
	switch cfg.Mode {
	case ObjectStorageModeGCS:
		opts := ClientOptionsFromEnv()
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
		return storage.NewClient(ctx, opts...)
	case ObjectStorageModeGCSEmulator:
		// the storage client only honours the emulator through this env var
		_ = os.Setenv("STORAGE_EMULATOR_HOST", strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/"))
		return storage.NewClient(ctx, option.WithoutAuthentication())
	default:
		return nil, &ObjectStorageConfigError{Code: ObjectStorageConfigErrorInvalidMode, Value: string(cfg.Mode)}
	}
}

func (b *ArtifactBucket) Close() error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Close()
}

func (b *ArtifactBucket) objectName(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if b.prefix == "" {
		return key
	}
	return b.prefix + "/" + key
}

// Create writes data under key only if no object exists there yet. The
// precondition is enforced by GCS, so concurrent writers cannot clobber
// each other.
func (b *ArtifactBucket) Create(ctx context.Context, key, contentType string, data []byte) (artifacts.Artifact, error) {
	if strings.TrimSpace(key) == "" {
		return artifacts.Artifact{}, fmt.Errorf("artifact key required")
	}
	name := b.objectName(key)
	obj := b.client.Bucket(b.bucket).Object(name).If(storage.Conditions{DoesNotExist: true})

	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	if w.ContentType == "" {
		w.ContentType = contentTypeForKey(key)
	}
	w.CacheControl = "public, max-age=31536000, immutable"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return artifacts.Artifact{}, fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		if isPreconditionFailed(err) {
			return artifacts.Artifact{}, artifacts.ErrArtifactExists
		}
		return artifacts.Artifact{}, fmt.Errorf("failed to close GCS writer for %q: %w", name, err)
	}
	b.log.Debug("artifact stored", "bucket", b.bucket, "object", name, "bytes", len(data))
	return artifacts.Artifact{Key: key, URL: b.URL(key), ContentType: w.ContentType, Size: len(data)}, nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// ListNames returns the base names of objects under "<prefix>/<scope>/",
// sorted. Nested "directories" are not descended into.
func (b *ArtifactBucket) ListNames(ctx context.Context, scope string) ([]string, error) {
	dir := strings.Trim(strings.TrimSpace(scope), "/")
	if b.prefix != "" {
		dir = strings.Trim(b.prefix+"/"+dir, "/")
	}
	if dir != "" {
		dir += "/"
	}
	it := b.client.Bucket(b.bucket).Objects(ctx, &storage.Query{Prefix: dir, Delimiter: "/"})
	out := []string{}
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list gs://%s/%s: %w", b.bucket, dir, err)
		}
		if attrs.Name == "" {
			// synthetic prefix entry
			continue
		}
		out = append(out, path.Base(attrs.Name))
	}
	sort.Strings(out)
	return out, nil
}

// URL is the public location of key, preferring a CDN domain, then the
// emulator media endpoint, then the configured base URL.
func (b *ArtifactBucket) URL(key string) string {
	name := b.objectName(key)
	if b.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", b.cdnDomain, name)
	}
	if b.mode == ObjectStorageModeGCSEmulator {
		base := b.publicBaseURL
		if base == "" {
			base = b.emulatorHost
		}
		if base != "" {
			return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", base, url.PathEscape(b.bucket), url.PathEscape(name))
		}
	}
	if b.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", b.publicBaseURL, b.bucket, name)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", b.bucket, name)
}

// URLForScope is the public URL of an uploaded file listed by ListNames.
func (b *ArtifactBucket) URLForScope(scope, name string) string {
	scope = strings.Trim(strings.TrimSpace(scope), "/")
	if scope == "" {
		return b.URL(name)
	}
	return b.URL(scope + "/" + name)
}

func contentTypeForKey(key string) string {
	switch strings.ToLower(path.Ext(strings.TrimSpace(key))) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".svg":
		return "image/svg+xml"
	default:
		return "application/octet-stream"
	}
}
