package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"

	articlerepos "github.com/yungbote/articleforge-backend/internal/data/repos/articles"
	types "github.com/yungbote/articleforge-backend/internal/domain/articles"
	"github.com/yungbote/articleforge-backend/internal/modules/articles/charts"
	"github.com/yungbote/articleforge-backend/internal/modules/articles/tags"
	"github.com/yungbote/articleforge-backend/internal/platform/dbctx"
	"github.com/yungbote/articleforge-backend/internal/platform/logger"
)

var tracer = otel.Tracer("articleforge/services")

const defaultListingTimeout = 5 * time.Second

type ResolveArticleInput struct {
	ArticleID string
	Content   string
	Charts    []charts.Descriptor
	// Scope selects the upload listing; it defaults to ArticleID.
	Scope string
}

type ResolveArticleOutput struct {
	Content    string
	Report     tags.Report
	Charts     []charts.RenderedChart
	Registered int
}

type ArticleFiguresConfig struct {
	Render         charts.RenderConfig
	ListingTimeout time.Duration
	MaxWorkers     int

	// UploadURL builds the src for an uploaded file. When nil, files are
	// served from UploadsURLPrefix/<scope>/<name>.
	UploadURL        func(scope, name string) string
	UploadsURLPrefix string
}

type ArticleFiguresService interface {
	Resolve(ctx context.Context, in ResolveArticleInput) (ResolveArticleOutput, error)
}

type articleFiguresService struct {
	log      *logger.Logger
	engine   *tags.Engine
	lister   FileLister
	registry articlerepos.ChartArtifactRepo
	cfg      ArticleFiguresConfig
}

// NewArticleFiguresService wires the tag engine to an upload listing and
// an optional chart artifact registry.
func NewArticleFiguresService(
	log *logger.Logger,
	engine *tags.Engine,
	lister FileLister,
	registry articlerepos.ChartArtifactRepo,
	cfg ArticleFiguresConfig,
) ArticleFiguresService {
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.ListingTimeout <= 0 {
		cfg.ListingTimeout = defaultListingTimeout
	}
	return &articleFiguresService{
		log:      log.With("service", "ArticleFiguresService"),
		engine:   engine,
		lister:   lister,
		registry: registry,
		cfg:      cfg,
	}
}

func (s *articleFiguresService) Resolve(ctx context.Context, in ResolveArticleInput) (ResolveArticleOutput, error) {
	if s.engine == nil {
		return ResolveArticleOutput{}, fmt.Errorf("tag engine required")
	}
	ctx, span := tracer.Start(ctx, "figures.ResolveArticle")
	defer span.End()

	scope := strings.TrimSpace(in.Scope)
	if scope == "" {
		scope = strings.TrimSpace(in.ArticleID)
	}
	span.SetAttributes(attribute.String("article.id", in.ArticleID), attribute.String("article.scope", scope))

	start := time.Now()
	files, err := listWithTimeout(ctx, s.lister, scope, s.cfg.ListingTimeout)
	if err != nil {
		s.log.Warn("upload listing failed; resolving with no files", "article_id", in.ArticleID, "scope", scope, "error", err)
	}

	out := s.engine.ResolveDocument(ctx, tags.ResolveInput{
		Content:        in.Content,
		AvailableFiles: files,
		PendingCharts:  in.Charts,
		Render:         s.cfg.Render,
		Embed:          s.embedFor(scope),
		MaxWorkers:     s.cfg.MaxWorkers,
	})
	res := ResolveArticleOutput{Content: out.Content, Report: out.Report, Charts: out.Charts}

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, fmt.Errorf("resolve article %q: %w", in.ArticleID, err)
	}

	res.Registered = s.register(ctx, in, out.Charts)

	s.log.Info(
		"article figures resolved",
		"article_id", in.ArticleID,
		"files", len(files),
		"resolved", out.Report.ResolvedCount,
		"unresolved", len(out.Report.UnresolvedRequests),
		"rejected_charts", len(out.Report.RejectedCharts),
		"artifacts", len(out.Charts),
		"registered", res.Registered,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	span.SetAttributes(
		attribute.Int("figures.resolved", out.Report.ResolvedCount),
		attribute.Int("figures.registered", res.Registered),
	)
	return res, nil
}

func (s *articleFiguresService) embedFor(scope string) tags.EmbedConfig {
	if s.cfg.UploadURL != nil {
		build := s.cfg.UploadURL
		return tags.EmbedConfig{URL: func(name string) string { return build(scope, name) }}
	}
	prefix := strings.TrimRight(s.cfg.UploadsURLPrefix, "/")
	if prefix == "" {
		prefix = "/uploads"
	}
	if scope != "" {
		prefix += "/" + url.PathEscape(scope)
	}
	return tags.EmbedConfig{URLPrefix: prefix}
}

// register records persisted charts. Registry failures are logged and do
// not affect the resolved document.
func (s *articleFiguresService) register(ctx context.Context, in ResolveArticleInput, rendered []charts.RenderedChart) int {
	if s.registry == nil || len(rendered) == 0 || strings.TrimSpace(in.ArticleID) == "" {
		return 0
	}
	names := make(map[string]string, len(in.Charts))
	for _, d := range in.Charts {
		names[strings.TrimSpace(d.ID)] = strings.TrimSpace(d.Name)
	}

	rows := make([]*types.ChartArtifact, 0, len(rendered))
	for _, rc := range rendered {
		meta, _ := json.Marshal(map[string]any{
			"title":  names[rc.ID],
			"reused": rc.Reused,
			"size":   rc.Artifact.Size,
		})
		rows = append(rows, &types.ChartArtifact{
			ArticleID:      in.ArticleID,
			ChartID:        rc.ID,
			StorageKey:     rc.Path,
			URL:            rc.URL,
			Format:         string(rc.Format),
			DescriptorHash: rc.DescriptorHash,
			Reused:         rc.Reused,
			Metadata:       datatypes.JSON(meta),
		})
	}
	if _, err := s.registry.Create(dbctx.Context{Ctx: ctx}, rows); err != nil {
		s.log.Error("chart artifact registry write failed", "article_id", in.ArticleID, "count", len(rows), "error", err)
		return 0
	}
	return len(rows)
}
