package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/yungbote/articleforge-backend/internal/app"
	"github.com/yungbote/articleforge-backend/internal/modules/articles/charts"
	"github.com/yungbote/articleforge-backend/internal/services"
)

func main() {
	var (
		inPath     string
		chartsPath string
		articleID  string
		scope      string
		outPath    string
		reportPath string
	)
	flag.StringVar(&inPath, "in", "", "article content file (required)")
	flag.StringVar(&chartsPath, "charts", "", "JSON file with an array of chart descriptors")
	flag.StringVar(&articleID, "article", "", "article id; also the upload listing scope")
	flag.StringVar(&scope, "scope", "", "upload listing scope (defaults to -article)")
	flag.StringVar(&outPath, "out", "", "write resolved content here instead of stdout")
	flag.StringVar(&reportPath, "report", "", "write the JSON resolution report here")
	flag.Parse()

	if strings.TrimSpace(inPath) == "" {
		fmt.Fprintln(os.Stderr, "-in is required")
		flag.Usage()
		os.Exit(2)
	}

	content, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read content: %v\n", err)
		os.Exit(1)
	}
	descriptors, err := readDescriptors(chartsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read charts: %v\n", err)
		os.Exit(1)
	}

	application, err := app.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := application.Services.ArticleFigures.Resolve(ctx, services.ResolveArticleInput{
		ArticleID: articleID,
		Content:   string(content),
		Charts:    descriptors,
		Scope:     scope,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolve: %v\n", err)
		application.Close()
		os.Exit(1)
	}

	if outPath == "" {
		fmt.Print(out.Content)
	} else if err := os.WriteFile(outPath, []byte(out.Content), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write content: %v\n", err)
		application.Close()
		os.Exit(1)
	}

	if reportPath != "" {
		raw, err := json.MarshalIndent(out.Report, "", "  ")
		if err == nil {
			err = os.WriteFile(reportPath, append(raw, '\n'), 0o644)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "write report: %v\n", err)
			application.Close()
			os.Exit(1)
		}
	}

	fmt.Fprintf(
		os.Stderr,
		"done; resolved=%d unresolved=%d rejected_charts=%d artifacts=%d registered=%d\n",
		out.Report.ResolvedCount,
		len(out.Report.UnresolvedRequests),
		len(out.Report.RejectedCharts),
		len(out.Charts),
		out.Registered,
	)
	for _, rej := range out.Report.RejectedCharts {
		fmt.Fprintf(os.Stderr, "rejected chart %s: %s (%s)\n", rej.ID, rej.Code, rej.Reason)
	}
}

func readDescriptors(path string) ([]charts.Descriptor, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out []charts.Descriptor
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}
