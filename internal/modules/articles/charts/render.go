package charts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/articleforge-backend/internal/modules/articles/artifacts"
	"github.com/yungbote/articleforge-backend/internal/platform/logger"
)

var tracer = otel.Tracer("articleforge/charts")

type Format string

const (
	FormatInlineVector Format = "svg"
	FormatRasterFile   Format = "png"
)

// ParseFormat accepts "svg"/"inline" and "png"/"raster".
func ParseFormat(raw string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "svg", "inline", "vector":
		return FormatInlineVector, true
	case "png", "raster", "file":
		return FormatRasterFile, true
	default:
		return "", false
	}
}

const defaultPersistTimeout = 15 * time.Second

// RenderConfig is passed explicitly to every renderer; nothing is read
// from package state.
type RenderConfig struct {
	Format         Format
	Theme          Theme
	// PersistTimeout bounds each artifact write. Object stores abort the
	// upload when it passes; the local store checks it only before opening
	// and after syncing the file, so a slow disk write runs to completion
	// before the call fails.
	PersistTimeout time.Duration
}

func (c RenderConfig) withDefaults() RenderConfig {
	if c.Format == "" {
		c.Format = FormatInlineVector
	}
	c.Theme = c.Theme.WithDefaults()
	if c.PersistTimeout <= 0 {
		c.PersistTimeout = defaultPersistTimeout
	}
	return c
}

// RenderedChart is the output of a single render. For inline charts
// Markup holds the <svg> element; for raster charts Path is the artifact
// key and URL its public location.
type RenderedChart struct {
	ID             string
	Format         Format
	Markup         string
	Path           string
	URL            string
	Artifact       artifacts.Artifact
	Reused         bool
	DescriptorHash string
}

type Renderer struct {
	cfg   RenderConfig
	store artifacts.Store
	log   *logger.Logger
}

// NewRenderer binds a config and an artifact store. store may be nil when
// only inline output is needed.
func NewRenderer(cfg RenderConfig, store artifacts.Store, log *logger.Logger) *Renderer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Renderer{cfg: cfg.withDefaults(), store: store, log: log.With("service", "ChartRenderer")}
}

func (r *Renderer) Config() RenderConfig { return r.cfg }

func (r *Renderer) Render(ctx context.Context, vd ValidatedDescriptor) (RenderedChart, error) {
	if !vd.Valid() {
		return RenderedChart{}, fmt.Errorf("render chart %q: descriptor was not validated", vd.ID)
	}
	ctx, span := tracer.Start(ctx, "charts.Render")
	defer span.End()
	span.SetAttributes(
		attribute.String("chart.id", vd.ID),
		attribute.String("chart.type", string(vd.Type)),
		attribute.String("chart.format", string(r.cfg.Format)),
		attribute.Int("chart.points", len(vd.Points)),
	)

	hash := DescriptorHash(vd, r.cfg.Theme, r.cfg.Format)
	sc := buildScene(vd, r.cfg.Theme)

	switch r.cfg.Format {
	case FormatInlineVector:
		return RenderedChart{
			ID:             vd.ID,
			Format:         FormatInlineVector,
			Markup:         renderSVG(sc, vd.ID),
			DescriptorHash: hash,
		}, nil
	case FormatRasterFile:
		out, err := r.renderRaster(ctx, vd, sc, hash)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "persist chart")
		}
		return out, err
	default:
		return RenderedChart{}, fmt.Errorf("render chart %q: unknown format %q", vd.ID, r.cfg.Format)
	}
}

func (r *Renderer) renderRaster(ctx context.Context, vd ValidatedDescriptor, sc scene, hash string) (RenderedChart, error) {
	key := ArtifactName(vd.ID, hash, "png")
	if r.store == nil {
		return RenderedChart{}, &artifacts.PersistenceError{Key: key, Err: errors.New("no artifact store configured")}
	}
	data, err := renderPNG(sc)
	if err != nil {
		return RenderedChart{}, fmt.Errorf("render chart %q png: %w", vd.ID, err)
	}
	if err := ctx.Err(); err != nil {
		return RenderedChart{}, &artifacts.PersistenceError{Key: key, Err: err}
	}

	pctx, cancel := context.WithTimeout(ctx, r.cfg.PersistTimeout)
	defer cancel()

	out := RenderedChart{ID: vd.ID, Format: FormatRasterFile, Path: key, DescriptorHash: hash}
	art, err := r.store.Create(pctx, key, "image/png", data)
	switch {
	case err == nil:
		out.Artifact = art
	case errors.Is(err, artifacts.ErrArtifactExists):
		// same key means same content hash
		out.Reused = true
		out.Artifact = artifacts.Artifact{Key: key, URL: r.store.URL(key), ContentType: "image/png", Size: len(data)}
		r.log.Debug("chart artifact already present, reusing", "chart_id", vd.ID, "key", key)
	default:
		var pe *artifacts.PersistenceError
		if errors.As(err, &pe) {
			return RenderedChart{}, pe
		}
		return RenderedChart{}, &artifacts.PersistenceError{Key: key, Err: err}
	}
	out.URL = out.Artifact.URL
	if out.URL == "" {
		out.URL = r.store.URL(key)
	}
	return out, nil
}
