package tags

import (
	"context"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/articleforge-backend/internal/modules/articles/artifacts"
	"github.com/yungbote/articleforge-backend/internal/modules/articles/charts"
	"github.com/yungbote/articleforge-backend/internal/modules/articles/figures"
	"github.com/yungbote/articleforge-backend/internal/platform/logger"
)

var tracer = otel.Tracer("articleforge/tags")

const defaultMaxWorkers = 4

type ResolveInput struct {
	Content        string
	AvailableFiles []string
	PendingCharts  []charts.Descriptor
	Render         charts.RenderConfig
	Embed          EmbedConfig
	MaxWorkers     int
}

type ResolveOutput struct {
	Content string
	Report  Report
	// Charts lists the raster charts persisted (or reused) during the call.
	Charts []charts.RenderedChart
}

// Engine rewrites [CHART:id] and [Imagem: name] tags. It holds no
// per-call state and is safe for concurrent use.
type Engine struct {
	log   *logger.Logger
	store artifacts.Store
}

func NewEngine(log *logger.Logger, store artifacts.Store) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{log: log.With("service", "TagEngine"), store: store}
}

type chartJob struct {
	id   string
	vd   charts.ValidatedDescriptor
	out  charts.RenderedChart
	err  error
	skip bool
}

// ResolveDocument runs the chart pass and then the image pass. It never
// fails: anything that cannot be resolved is left verbatim and reported.
func (e *Engine) ResolveDocument(ctx context.Context, in ResolveInput) ResolveOutput {
	ctx, span := tracer.Start(ctx, "tags.ResolveDocument")
	defer span.End()

	original := Scan(in.Content)
	span.SetAttributes(
		attribute.Int("tags.count", len(original)),
		attribute.Int("tags.available_files", len(in.AvailableFiles)),
		attribute.Int("tags.pending_charts", len(in.PendingCharts)),
	)
	if ctx.Err() != nil {
		return canceledOutput(in.Content, original)
	}

	report := newReport()

	// Pass A: charts.
	content, rendered, extraNames, artifactInfo := e.chartPass(ctx, in, original, &report)
	if ctx.Err() != nil {
		e.log.Warn("resolve canceled after chart pass", "error", ctx.Err())
		return canceledOutput(in.Content, original)
	}

	// Pass B: images, including the tags Pass A produced.
	idx := figures.BuildIndex(in.AvailableFiles).With(extraNames...)
	content = e.imagePass(content, idx, in.Embed, artifactInfo, &report)
	if ctx.Err() != nil {
		e.log.Warn("resolve canceled after image pass", "error", ctx.Err())
		return canceledOutput(in.Content, original)
	}

	span.SetAttributes(
		attribute.Int("tags.resolved", report.ResolvedCount),
		attribute.Int("tags.unresolved", len(report.UnresolvedRequests)),
		attribute.Int("tags.rejected_charts", len(report.RejectedCharts)),
	)
	return ResolveOutput{Content: content, Report: report, Charts: rendered}
}

type artifactRef struct {
	url     string
	caption string
}

func (e *Engine) chartPass(ctx context.Context, in ResolveInput, toks []Token, report *Report) (string, []charts.RenderedChart, []string, map[string]artifactRef) {
	var ids []string
	seen := map[string]bool{}
	for _, t := range toks {
		if t.Kind != KindChart || !t.Terminated || seen[t.Payload] {
			continue
		}
		seen[t.Payload] = true
		ids = append(ids, t.Payload)
	}
	if len(ids) == 0 {
		return in.Content, nil, nil, nil
	}

	valid, rejected := charts.ValidateBatch(in.PendingCharts)
	rejectedByID := make(map[string]*charts.Rejection, len(rejected))
	for _, r := range rejected {
		if _, ok := rejectedByID[r.ID]; !ok {
			rejectedByID[r.ID] = r
		}
	}

	jobs := make([]*chartJob, len(ids))
	for i, id := range ids {
		jobs[i] = &chartJob{id: id}
		key, found := lookupChart(id, valid, rejectedByID)
		if rej, ok := rejectedByID[key]; found && ok {
			report.RejectedCharts = append(report.RejectedCharts, ChartRejection{ID: id, Code: rej.Code, Reason: rej.Reason})
			jobs[i].skip = true
			continue
		}
		if !found {
			report.RejectedCharts = append(report.RejectedCharts, ChartRejection{
				ID: id, Code: CodeDescriptorNotFound, Reason: "no pending chart descriptor has this id",
			})
			jobs[i].skip = true
			continue
		}
		jobs[i].vd = valid[key]
	}

	renderer := charts.NewRenderer(in.Render, e.store, e.log)
	maxConc := in.MaxWorkers
	if maxConc <= 0 {
		maxConc = defaultMaxWorkers
	}
	if maxConc > len(ids) {
		maxConc = len(ids)
	}

	var renderedCount, failed int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConc)
	for _, job := range jobs {
		if job.skip {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				job.err = err
				return nil
			}
			out, err := renderer.Render(gctx, job.vd)
			if err != nil {
				job.err = err
				atomic.AddInt32(&failed, 1)
				return nil
			}
			job.out = out
			atomic.AddInt32(&renderedCount, 1)
			return nil
		})
	}
	_ = g.Wait()

	replacement := make(map[string]string, len(jobs))
	var rendered []charts.RenderedChart
	var extraNames []string
	artifactInfo := map[string]artifactRef{}
	failedSeen := map[string]bool{}
	for _, job := range jobs {
		if job.skip {
			continue
		}
		if job.err != nil {
			if ctx.Err() != nil {
				// the caller discards everything on cancellation
				continue
			}
			code := CodeRenderFailed
			if artifacts.IsPersistenceError(job.err) {
				code = CodePersistenceFailed
			}
			e.log.Warn("chart render failed", "chart_id", job.id, "code", code, "error", job.err)
			report.RejectedCharts = append(report.RejectedCharts, ChartRejection{ID: job.id, Code: code, Reason: job.err.Error()})
			// the tag stays verbatim, so it is also an unresolved request
			report.unresolved(chartOpen+job.id+"]", failedSeen)
			continue
		}
		switch job.out.Format {
		case charts.FormatRasterFile:
			name := job.out.Path
			replacement[job.id] = imageOpen + " " + name + "]"
			extraNames = append(extraNames, name)
			artifactInfo[name] = artifactRef{url: job.out.URL, caption: job.vd.Title()}
			rendered = append(rendered, job.out)
		default:
			replacement[job.id] = chartFigure(job.id, job.out.Markup, job.vd.Title())
			report.ResolvedCount++
			report.Resolutions = append(report.Resolutions, Resolution{
				Tag: chartOpen + job.id + "]", Kind: KindChart.String(), Target: job.id, Strategy: string(charts.FormatInlineVector),
			})
		}
	}

	e.log.Debug("chart pass complete",
		"charts_requested", len(ids),
		"charts_rendered", atomic.LoadInt32(&renderedCount),
		"charts_failed", atomic.LoadInt32(&failed),
	)

	return rewrite(in.Content, toks, func(t Token) (string, bool) {
		if t.Kind != KindChart || !t.Terminated {
			return "", false
		}
		r, ok := replacement[t.Payload]
		return r, ok
	}), rendered, extraNames, artifactInfo
}

// lookupChart matches a tag id against descriptor ids, exactly first and
// then case-insensitively when exactly one descriptor folds to it.
func lookupChart(id string, valid map[string]charts.ValidatedDescriptor, rejected map[string]*charts.Rejection) (string, bool) {
	if _, ok := valid[id]; ok {
		return id, true
	}
	if _, ok := rejected[id]; ok {
		return id, true
	}
	var match string
	n := 0
	for k := range valid {
		if strings.EqualFold(k, id) {
			match = k
			n++
		}
	}
	for k := range rejected {
		if strings.EqualFold(k, id) {
			match = k
			n++
		}
	}
	if n == 1 {
		return match, true
	}
	return "", false
}

func (e *Engine) imagePass(content string, idx figures.Index, embed EmbedConfig, artifactInfo map[string]artifactRef, report *Report) string {
	toks := Scan(content)
	replacement := map[string]string{}
	decided := map[string]bool{}
	unresolvedSeen := map[string]bool{}
	for _, t := range toks {
		if !t.Terminated {
			report.unresolved(strings.TrimSpace(t.Text), unresolvedSeen)
			continue
		}
		if t.Kind != KindImage {
			// left over from Pass A and already reported there
			continue
		}
		if decided[t.Text] {
			continue
		}
		decided[t.Text] = true
		res := figures.Resolve(figures.MatchRequest{RequestedName: t.Payload}, idx)
		if !res.Matched {
			report.unresolved(t.Payload, unresolvedSeen)
			continue
		}
		raw := res.Candidate.RawName
		src, caption := embed.URLFor(raw), captionFor(t.Payload)
		if ref, ok := artifactInfo[raw]; ok {
			src, caption = ref.url, ref.caption
		}
		replacement[t.Text] = imageFigure(src, caption)
		report.ResolvedCount++
		report.Resolutions = append(report.Resolutions, Resolution{
			Tag: t.Text, Kind: KindImage.String(), Target: raw, Strategy: res.Strategy.String(),
		})
	}
	return rewrite(content, toks, func(t Token) (string, bool) {
		if t.Kind != KindImage || !t.Terminated {
			return "", false
		}
		r, ok := replacement[t.Text]
		return r, ok
	})
}

// rewrite splices replacements into content by token offsets. Text
// outside replaced tokens is copied byte for byte.
func rewrite(content string, toks []Token, replace func(Token) (string, bool)) string {
	var b strings.Builder
	b.Grow(len(content))
	last := 0
	changed := false
	for _, t := range toks {
		r, ok := replace(t)
		if !ok {
			continue
		}
		b.WriteString(content[last:t.Start])
		b.WriteString(r)
		last = t.End
		changed = true
	}
	if !changed {
		return content
	}
	b.WriteString(content[last:])
	return b.String()
}

func canceledOutput(content string, toks []Token) ResolveOutput {
	report := newReport()
	seen := map[string]bool{}
	for _, t := range toks {
		report.unresolved(strings.TrimSpace(t.Text), seen)
	}
	return ResolveOutput{Content: content, Report: report}
}
