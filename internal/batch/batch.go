package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/dataqualityagent/data-quality-agent/internal/report"
)

const DefaultConcurrency = 4

var ErrNoCSVFiles = errors.New("no CSV files found")

// AnalyzeFunc produces a quality report for one dataset file.
type AnalyzeFunc func(ctx context.Context, path string) (*report.QualityReport, error)

// Result is the outcome for a single file. Report is nil when Err is set.
type Result struct {
	File   string
	Report *report.QualityReport
	Err    error
}

// Runner fans a set of dataset files out over a bounded worker pool.
type Runner struct {
	analyze     AnalyzeFunc
	concurrency int
	progress    io.Writer
}

func NewRunner(analyze AnalyzeFunc, concurrency int) *Runner {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Runner{
		analyze:     analyze,
		concurrency: concurrency,
	}
}

// SetProgress enables a progress bar on w. Pass nil to disable.
func (r *Runner) SetProgress(w io.Writer) {
	r.progress = w
}

// DiscoverCSVFiles returns the CSV files directly under dir, sorted by name.
func DiscoverCSVFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to list CSV files: %w", err)
	}
	sort.Strings(files)

	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoCSVFiles, dir)
	}
	return files, nil
}

// Run analyzes every file and returns one result per file in input order.
// Individual failures are recorded on the result and do not stop the run;
// only context cancellation aborts the batch.
func (r *Runner) Run(ctx context.Context, files []string) ([]Result, error) {
	results := make([]Result, len(files))
	for i, file := range files {
		results[i].File = file
	}

	bar := r.newProgressBar(len(files))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(r.concurrency)

	for i, file := range files {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return err
			}

			rep, err := r.analyze(ctx, file)
			results[i].Report = rep
			results[i].Err = err

			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}

	err := group.Wait()
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return results, fmt.Errorf("batch analysis interrupted: %w", err)
	}
	return results, nil
}

func (r *Runner) newProgressBar(total int) *progressbar.ProgressBar {
	if r.progress == nil {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.progress),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(18),
		progressbar.OptionSetDescription("analyzing datasets"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
	)
}

// CountDecisions tallies decisions across the successful results.
func CountDecisions(results []Result) map[report.Decision]int {
	counts := make(map[report.Decision]int)
	for _, result := range results {
		if result.Err != nil || result.Report == nil {
			continue
		}
		counts[result.Report.Decision]++
	}
	return counts
}

// FailureCount returns how many files could not be analyzed.
func FailureCount(results []Result) int {
	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
		}
	}
	return failed
}

// SummaryEntries converts the successful results for the batch summary page.
func SummaryEntries(results []Result) []report.DatasetResult {
	entries := make([]report.DatasetResult, 0, len(results))
	for _, result := range results {
		if result.Err != nil || result.Report == nil {
			continue
		}
		entries = append(entries, report.DatasetResult{
			File:   filepath.Base(result.File),
			Report: result.Report,
		})
	}
	return entries
}
