package evalcmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/ocrserver/internal/eval/dataset"
	"github.com/lehigh-university-libraries/ocrserver/internal/eval/metrics"
	"github.com/lehigh-university-libraries/ocrserver/internal/eval/results"
)

// Recognizer is the part of ocr.Service the evaluation needs
type Recognizer interface {
	Recognize(ctx context.Context, data []byte) (string, error)
}

// Options controls an evaluation run
type Options struct {
	DatasetPath string
	SampleSize  int // below one evaluates every sample
	Concurrency int
	OutputDir   string
	Provider    string
	Model       string
	Download    dataset.DownloadConfig
}

// Report is what a run produced
type Report struct {
	Aggregate  *metrics.AggregateResults
	ReportPath string
}

// Run loads the dataset, recognizes every sample with a bounded number of
// workers, prints a summary to out and writes the YAML report.
func Run(ctx context.Context, recognizer Recognizer, opts Options, out io.Writer) (*Report, error) {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	slog.Info("Starting evaluation run", "dataset", opts.DatasetPath, "provider", opts.Provider, "model", opts.Model)

	path, err := dataset.NewDownloader(opts.Download).Resolve(opts.DatasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dataset: %w", err)
	}

	samples, err := dataset.NewLoader(path).LoadSample(opts.SampleSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("dataset %s has no usable samples", opts.DatasetPath)
	}

	slog.Info("Dataset loaded", "samples", len(samples), "concurrency", opts.Concurrency)

	evaluated := evaluateAll(ctx, recognizer, samples, opts.Concurrency)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("evaluation interrupted: %w", err)
	}

	aggregated := metrics.AggregateEvaluationResults(evaluated, opts.Provider, opts.Model)
	aggregated.PrintSummary(out)

	reportPath, err := results.SaveToYAML(opts.OutputDir, results.Build(aggregated, opts.DatasetPath, opts.Concurrency))
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "\nEvaluation results saved to: %s\n", reportPath)

	return &Report{Aggregate: aggregated, ReportPath: reportPath}, nil
}

// evaluateAll keeps results in dataset order regardless of completion order
func evaluateAll(ctx context.Context, recognizer Recognizer, samples []dataset.Sample, concurrency int) []metrics.EvaluationResult {
	evaluated := make([]metrics.EvaluationResult, len(samples))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, concurrency)

	for i, sample := range samples {
		select {
		case semaphore <- struct{}{}: // Acquire
		case <-ctx.Done():
			wg.Wait()
			return evaluated
		}

		wg.Add(1)
		go func(idx int, sample dataset.Sample) {
			defer wg.Done()
			defer func() { <-semaphore }() // Release

			slog.Debug("Processing sample", "id", sample.ID, "progress", fmt.Sprintf("%d/%d", idx+1, len(samples)))
			evaluated[idx] = evaluateSample(ctx, recognizer, sample)
		}(i, sample)
	}

	wg.Wait()
	return evaluated
}

func evaluateSample(ctx context.Context, recognizer Recognizer, sample dataset.Sample) metrics.EvaluationResult {
	start := time.Now()
	result := metrics.EvaluationResult{
		ID:    sample.ID,
		Label: sample.Label,
	}

	data, err := sample.Bytes()
	if err != nil {
		result.Error = err.Error()
		result.ProcessingTime = time.Since(start)
		return result
	}

	text, err := recognizer.Recognize(ctx, data)
	result.ProcessingTime = time.Since(start)
	if err != nil {
		slog.Warn("Sample recognition failed", "id", sample.ID, "err", err)
		result.Error = err.Error()
		return result
	}

	comparison := metrics.Compare(sample.Label, text)
	result.Predicted = text
	result.Comparison = &comparison
	return result
}
