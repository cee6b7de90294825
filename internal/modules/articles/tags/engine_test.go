package tags

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/articleforge-backend/internal/modules/articles/artifacts"
	"github.com/yungbote/articleforge-backend/internal/modules/articles/charts"
)

func demoChart() charts.Descriptor {
	return charts.Descriptor{
		ID:   "c1",
		Name: "Demo",
		Type: "bar",
		Series: []charts.SeriesPoint{
			{Label: "A", Value: 10},
			{Label: "B", Value: 20},
		},
	}
}

func TestResolveDocumentEndToEnd(t *testing.T) {
	e := NewEngine(nil, nil)
	out := e.ResolveDocument(context.Background(), ResolveInput{
		Content:        "See [CHART:c1] and [Imagem: foo.png]",
		AvailableFiles: []string{"123_foo.png"},
		PendingCharts:  []charts.Descriptor{demoChart()},
	})
	if strings.Contains(out.Content, "[CHART:c1]") || strings.Contains(out.Content, "[Imagem:") {
		t.Fatalf("tags left in output: %s", out.Content)
	}
	if !strings.HasPrefix(out.Content, "See <figure class=\"article-chart\" data-chart-id=\"c1\"><svg") {
		t.Fatalf("chart not inlined: %.120s", out.Content)
	}
	if !strings.Contains(out.Content, `<img src="/uploads/123_foo.png" alt="foo"/>`) {
		t.Fatalf("image embed missing: %s", out.Content)
	}
	r := out.Report
	if r.ResolvedCount != 2 || len(r.RejectedCharts) != 0 || len(r.UnresolvedRequests) != 0 {
		t.Fatalf("unexpected report: %+v", r)
	}
	if len(r.Resolutions) != 2 || r.Resolutions[1].Target != "123_foo.png" || r.Resolutions[1].Strategy != "exact" {
		t.Fatalf("unexpected resolutions: %+v", r.Resolutions)
	}
}

func TestResolveDocumentIdempotent(t *testing.T) {
	e := NewEngine(nil, nil)
	in := ResolveInput{
		Content:        "Intro [CHART:c1] mid [Imagem: foo.png] end",
		AvailableFiles: []string{"123_foo.png"},
		PendingCharts:  []charts.Descriptor{demoChart()},
	}
	first := e.ResolveDocument(context.Background(), in)
	in.Content = first.Content
	second := e.ResolveDocument(context.Background(), in)
	if second.Content != first.Content {
		t.Fatalf("second pass changed content")
	}
	if second.Report.ResolvedCount != 0 || len(second.Report.UnresolvedRequests) != 0 || len(second.Report.RejectedCharts) != 0 {
		t.Fatalf("want empty report got %+v", second.Report)
	}
}

func TestResolveDocumentDeterministic(t *testing.T) {
	e := NewEngine(nil, nil)
	in := ResolveInput{
		Content:        "[CHART:a] [CHART:b] [CHART:missing] [Imagem: logo] [Imagem: nope.png] [CHART:c]",
		AvailableFiles: []string{"logo.png", "other.jpg"},
		PendingCharts: []charts.Descriptor{
			{ID: "a", Type: "line", Series: []charts.SeriesPoint{{Label: "Jan", Value: 1}, {Label: "Fev", Value: 3}}},
			{ID: "b", Type: "pie", Series: []charts.SeriesPoint{{Label: "Sim", Value: 1}, {Label: "Não", Value: 3}}},
			{ID: "c", Type: "bar", Series: []charts.SeriesPoint{{Label: "Categoria 1", Value: 1}}},
		},
		MaxWorkers: 3,
	}
	first := e.ResolveDocument(context.Background(), in)
	for i := 0; i < 5; i++ {
		again := e.ResolveDocument(context.Background(), in)
		if again.Content != first.Content {
			t.Fatalf("run %d: content differs", i)
		}
		if !reflect.DeepEqual(again.Report, first.Report) {
			t.Fatalf("run %d: report differs\nwant=%+v\ngot=%+v", i, first.Report, again.Report)
		}
	}
	wantRejected := []ChartRejection{
		{ID: "missing", Code: CodeDescriptorNotFound},
		{ID: "c", Code: charts.RejectPlaceholderLabel},
	}
	if len(first.Report.RejectedCharts) != len(wantRejected) {
		t.Fatalf("unexpected rejections: %+v", first.Report.RejectedCharts)
	}
	for i, w := range wantRejected {
		got := first.Report.RejectedCharts[i]
		if got.ID != w.ID || got.Code != w.Code || got.Reason == "" {
			t.Fatalf("rejection %d: want=%+v got=%+v", i, w, got)
		}
	}
	if !reflect.DeepEqual(first.Report.UnresolvedRequests, []string{"nope.png"}) {
		t.Fatalf("unexpected unresolved: %v", first.Report.UnresolvedRequests)
	}
	if first.Report.ResolvedCount != 3 {
		t.Fatalf("want=3 resolved got=%d", first.Report.ResolvedCount)
	}
}

func TestResolveDocumentRoundTripOnFailure(t *testing.T) {
	e := NewEngine(nil, nil)
	content := "Antes [CHART:vendas] depois [Imagem: nonexistent.png]."
	out := e.ResolveDocument(context.Background(), ResolveInput{
		Content:        content,
		AvailableFiles: []string{"logo.png"},
		PendingCharts: []charts.Descriptor{{
			ID: "vendas", Type: "bar", Series: []charts.SeriesPoint{{Label: "Norte", Value: "N/A"}},
		}},
	})
	if out.Content != content {
		t.Fatalf("want content unchanged\nwant=%q\ngot=%q", content, out.Content)
	}
	r := out.Report
	if len(r.RejectedCharts) != 1 || r.RejectedCharts[0].ID != "vendas" || r.RejectedCharts[0].Code != charts.RejectNonNumericValue || r.RejectedCharts[0].Reason == "" {
		t.Fatalf("unexpected rejections: %+v", r.RejectedCharts)
	}
	if !reflect.DeepEqual(r.UnresolvedRequests, []string{"nonexistent.png"}) {
		t.Fatalf("unexpected unresolved: %v", r.UnresolvedRequests)
	}
}

func TestResolveDocumentNoFiles(t *testing.T) {
	e := NewEngine(nil, nil)
	content := "[Imagem: a.png] and [Imagem:b.png]"
	out := e.ResolveDocument(context.Background(), ResolveInput{Content: content})
	if out.Content != content {
		t.Fatalf("content changed with empty listing")
	}
	if !reflect.DeepEqual(out.Report.UnresolvedRequests, []string{"a.png", "b.png"}) {
		t.Fatalf("unexpected unresolved: %v", out.Report.UnresolvedRequests)
	}
}

func TestResolveDocumentLiteralSubstitution(t *testing.T) {
	e := NewEngine(nil, nil)
	content := `$1 (a+b)* \d [Imagem: grafico (v2)+.png] $& end`
	out := e.ResolveDocument(context.Background(), ResolveInput{
		Content:        content,
		AvailableFiles: []string{"grafico (v2)+.png"},
	})
	if !strings.HasPrefix(out.Content, `$1 (a+b)* \d <figure`) || !strings.HasSuffix(out.Content, `</figure> $& end`) {
		t.Fatalf("surrounding text corrupted: %q", out.Content)
	}
	if !strings.Contains(out.Content, `src="/uploads/grafico%20%28v2%29+.png"`) {
		t.Fatalf("unexpected src: %q", out.Content)
	}
	if out.Report.ResolvedCount != 1 {
		t.Fatalf("want=1 resolved got=%d", out.Report.ResolvedCount)
	}
}

func TestResolveDocumentRepeatedTags(t *testing.T) {
	e := NewEngine(nil, nil)
	out := e.ResolveDocument(context.Background(), ResolveInput{
		Content:        "[Imagem: foo.png] x [Imagem: foo.png] y [CHART:c1] z [CHART:c1]",
		AvailableFiles: []string{"foo.png"},
		PendingCharts:  []charts.Descriptor{demoChart()},
	})
	if strings.Count(out.Content, `<img src="/uploads/foo.png"`) != 2 {
		t.Fatalf("both image occurrences should be replaced: %s", out.Content)
	}
	if strings.Count(out.Content, `<figure class="article-chart" data-chart-id="c1">`) != 2 {
		t.Fatalf("both chart occurrences should be replaced")
	}
	if out.Report.ResolvedCount != 2 {
		t.Fatalf("want=2 distinct resolutions got=%d", out.Report.ResolvedCount)
	}
}

func TestResolveDocumentMalformedTags(t *testing.T) {
	e := NewEngine(nil, nil)
	content := "ok [Imagem: foo.png] broken [Imagem: bar.png and [CHART:c1"
	out := e.ResolveDocument(context.Background(), ResolveInput{
		Content:        content,
		AvailableFiles: []string{"foo.png", "bar.png"},
		PendingCharts:  []charts.Descriptor{demoChart()},
	})
	if !strings.HasSuffix(out.Content, " broken [Imagem: bar.png and [CHART:c1") {
		t.Fatalf("unterminated tags must stay verbatim: %q", out.Content)
	}
	want := []string{"[Imagem: bar.png and", "[CHART:c1"}
	if !reflect.DeepEqual(out.Report.UnresolvedRequests, want) {
		t.Fatalf("want unresolved=%v got=%v", want, out.Report.UnresolvedRequests)
	}
	if out.Report.ResolvedCount != 1 {
		t.Fatalf("want=1 resolved got=%d", out.Report.ResolvedCount)
	}
}

func TestResolveDocumentKeywordIsCaseSensitive(t *testing.T) {
	e := NewEngine(nil, nil)
	content := "[imagem: foo.png] [Chart:c1]"
	out := e.ResolveDocument(context.Background(), ResolveInput{
		Content:        content,
		AvailableFiles: []string{"foo.png"},
		PendingCharts:  []charts.Descriptor{demoChart()},
	})
	if out.Content != content || out.Report.ResolvedCount != 0 {
		t.Fatalf("lower-case keywords are not tags: %+v", out)
	}
}

func TestResolveDocumentPayloadIsCaseInsensitive(t *testing.T) {
	e := NewEngine(nil, nil)
	out := e.ResolveDocument(context.Background(), ResolveInput{
		Content:        "[Imagem: FOO.PNG] [CHART:C1]",
		AvailableFiles: []string{"foo.png"},
		PendingCharts:  []charts.Descriptor{demoChart()},
	})
	if out.Report.ResolvedCount != 2 {
		t.Fatalf("want=2 resolved got=%+v", out.Report)
	}
}

func TestResolveDocumentRasterTwoPass(t *testing.T) {
	dir := t.TempDir()
	store, err := artifacts.NewLocalStore(dir, "/charts")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	e := NewEngine(nil, store)
	out := e.ResolveDocument(context.Background(), ResolveInput{
		Content:       "Veja [CHART:c1].",
		PendingCharts: []charts.Descriptor{demoChart()},
		Render:        charts.RenderConfig{Format: charts.FormatRasterFile},
	})
	if len(out.Charts) != 1 {
		t.Fatalf("want one persisted chart got %d", len(out.Charts))
	}
	name := out.Charts[0].Path
	if !strings.HasPrefix(name, "c1_") || !strings.HasSuffix(name, ".png") {
		t.Fatalf("unexpected artifact name %q", name)
	}
	if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
		t.Fatalf("artifact not persisted: %v", err)
	}
	want := `Veja <figure class="article-figure"><img src="/charts/` + name + `" alt="Demo"/><figcaption>Demo</figcaption></figure>.`
	if out.Content != want {
		t.Fatalf("want=%q\ngot=%q", want, out.Content)
	}
	if out.Report.ResolvedCount != 1 || len(out.Report.UnresolvedRequests) != 0 {
		t.Fatalf("unexpected report: %+v", out.Report)
	}
	if r := out.Report.Resolutions; len(r) != 1 || r[0].Kind != "image" || r[0].Target != name {
		t.Fatalf("unexpected resolutions: %+v", r)
	}
}

type brokenStore struct{ calls int32 }

func (s *brokenStore) Create(ctx context.Context, key, contentType string, data []byte) (artifacts.Artifact, error) {
	atomic.AddInt32(&s.calls, 1)
	return artifacts.Artifact{}, errors.New("bucket unavailable")
}

func (s *brokenStore) URL(key string) string { return key }

func TestResolveDocumentPersistenceFailure(t *testing.T) {
	e := NewEngine(nil, &brokenStore{})
	content := "A [CHART:c1] B [Imagem: foo.png]"
	out := e.ResolveDocument(context.Background(), ResolveInput{
		Content:        content,
		AvailableFiles: []string{"foo.png"},
		PendingCharts:  []charts.Descriptor{demoChart()},
		Render:         charts.RenderConfig{Format: charts.FormatRasterFile},
	})
	if !strings.HasPrefix(out.Content, "A [CHART:c1] B <figure") {
		t.Fatalf("chart should stay verbatim while the rest resolves: %q", out.Content)
	}
	r := out.Report
	if len(r.RejectedCharts) != 1 || r.RejectedCharts[0].Code != CodePersistenceFailed {
		t.Fatalf("unexpected rejections: %+v", r.RejectedCharts)
	}
	if r.ResolvedCount != 1 {
		t.Fatalf("want=1 resolved got=%d", r.ResolvedCount)
	}
	if !reflect.DeepEqual(r.UnresolvedRequests, []string{"[CHART:c1]"}) {
		t.Fatalf("want unresolved=[[CHART:c1]] got=%v", r.UnresolvedRequests)
	}
}

type slowStore struct{}

func (slowStore) Create(ctx context.Context, key, contentType string, data []byte) (artifacts.Artifact, error) {
	<-ctx.Done()
	return artifacts.Artifact{}, &artifacts.PersistenceError{Key: key, Err: ctx.Err()}
}

func (slowStore) URL(key string) string { return key }

func TestResolveDocumentPersistTimeoutIsUnresolved(t *testing.T) {
	e := NewEngine(nil, slowStore{})
	out := e.ResolveDocument(context.Background(), ResolveInput{
		Content:       "Veja [CHART:c1].",
		PendingCharts: []charts.Descriptor{demoChart()},
		Render:        charts.RenderConfig{Format: charts.FormatRasterFile, PersistTimeout: 20 * time.Millisecond},
	})
	if out.Content != "Veja [CHART:c1]." {
		t.Fatalf("chart tag should stay verbatim: %q", out.Content)
	}
	r := out.Report
	if len(r.RejectedCharts) != 1 || r.RejectedCharts[0].Code != CodePersistenceFailed {
		t.Fatalf("unexpected rejections: %+v", r.RejectedCharts)
	}
	if !reflect.DeepEqual(r.UnresolvedRequests, []string{"[CHART:c1]"}) {
		t.Fatalf("want unresolved=[[CHART:c1]] got=%v", r.UnresolvedRequests)
	}
}

func TestResolveDocumentCanceled(t *testing.T) {
	store := &brokenStore{}
	e := NewEngine(nil, store)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	content := "A [CHART:c1] B [Imagem: foo.png]"
	out := e.ResolveDocument(ctx, ResolveInput{
		Content:        content,
		AvailableFiles: []string{"foo.png"},
		PendingCharts:  []charts.Descriptor{demoChart()},
		Render:         charts.RenderConfig{Format: charts.FormatRasterFile},
	})
	if out.Content != content {
		t.Fatalf("canceled call must return the original content")
	}
	if !reflect.DeepEqual(out.Report.UnresolvedRequests, []string{"[CHART:c1]", "[Imagem: foo.png]"}) {
		t.Fatalf("unexpected unresolved: %v", out.Report.UnresolvedRequests)
	}
	if out.Report.ResolvedCount != 0 || len(out.Charts) != 0 {
		t.Fatalf("nothing should resolve after cancellation: %+v", out.Report)
	}
	if atomic.LoadInt32(&store.calls) != 0 {
		t.Fatalf("nothing should be persisted after cancellation")
	}
}

func TestResolveDocumentNoTags(t *testing.T) {
	e := NewEngine(nil, nil)
	content := "plain text with [brackets] and [Imagem without colon]"
	out := e.ResolveDocument(context.Background(), ResolveInput{Content: content, AvailableFiles: []string{"a.png"}})
	if out.Content != content {
		t.Fatalf("content changed")
	}
	r := out.Report
	if r.ResolvedCount != 0 || len(r.UnresolvedRequests) != 0 || len(r.RejectedCharts) != 0 || len(r.Resolutions) != 0 {
		t.Fatalf("want empty report got %+v", r)
	}
}
