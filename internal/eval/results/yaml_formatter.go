package results

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/lehigh-university-libraries/ocrserver/internal/eval/metrics"
	"gopkg.in/yaml.v3"
)

// DefaultDir is where reports land when no directory is given
const DefaultDir = "evals"

// EvalConfig represents the configuration section of the eval YAML
type EvalConfig struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	DatasetPath string `yaml:"datasetpath"`
	SampleSize  int    `yaml:"samplesize"`
	Concurrency int    `yaml:"concurrency"`
	Timestamp   string `yaml:"timestamp"`
}

// EvalSummary mirrors the headline numbers from metrics.AggregateResults
type EvalSummary struct {
	Total              int     `yaml:"total"`
	Succeeded          int     `yaml:"succeeded"`
	Failed             int     `yaml:"failed"`
	ExactAccuracy      float64 `yaml:"exactaccuracy"`
	FoldedAccuracy     float64 `yaml:"foldedaccuracy"`
	AverageSimilarity  float64 `yaml:"averagesimilarity"`
	CharacterErrorRate float64 `yaml:"charactererrorrate"`
	AverageMillis      int64   `yaml:"averagemillis"`
}

// EvalResult represents a single evaluation result
type EvalResult struct {
	Identifier string  `yaml:"identifier"`
	Label      string  `yaml:"label"`
	Predicted  string  `yaml:"predicted"`
	Exact      bool    `yaml:"exact"`
	Distance   int     `yaml:"distance"`
	Similarity float64 `yaml:"similarity"`
	Millis     int64   `yaml:"millis"`
	Error      string  `yaml:"error,omitempty"`
}

// EvalSpec represents the complete evaluation report
type EvalSpec struct {
	Config  EvalConfig   `yaml:"config"`
	Summary EvalSummary  `yaml:"summary"`
	Results []EvalResult `yaml:"results"`
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Build converts aggregated metrics into a report
func Build(agg *metrics.AggregateResults, datasetPath string, concurrency int) EvalSpec {
	spec := EvalSpec{
		Config: EvalConfig{
			Provider:    agg.Provider,
			Model:       agg.Model,
			DatasetPath: datasetPath,
			SampleSize:  agg.SampleSize,
			Concurrency: concurrency,
			Timestamp:   agg.EvaluationDate.Format("2006-01-02_15-04-05"),
		},
		Summary: EvalSummary{
			Total:              agg.TotalRecords,
			Succeeded:          agg.SuccessCount,
			Failed:             agg.FailureCount,
			ExactAccuracy:      agg.ExactAccuracy,
			FoldedAccuracy:     agg.FoldedAccuracy,
			AverageSimilarity:  agg.AverageSimilarity,
			CharacterErrorRate: agg.CharacterErrorRate,
			AverageMillis:      agg.AverageProcessingTime.Milliseconds(),
		},
		Results: make([]EvalResult, 0, len(agg.Results)),
	}

	for _, r := range agg.Results {
		result := EvalResult{
			Identifier: r.ID,
			Label:      r.Label,
			Predicted:  r.Predicted,
			Millis:     r.ProcessingTime.Milliseconds(),
			Error:      r.Error,
		}
		if r.Comparison != nil {
			result.Exact = r.Comparison.Exact
			result.Distance = r.Comparison.Distance
			result.Similarity = r.Comparison.Similarity
		}
		spec.Results = append(spec.Results, result)
	}

	return spec
}

// SaveToYAML writes the report to dir/<model>-<timestamp>.yaml and returns
// the path written
func SaveToYAML(dir string, spec EvalSpec) (string, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", dir, err)
	}

	timestamp := spec.Config.Timestamp
	if timestamp == "" {
		timestamp = time.Now().Format("2006-01-02_15-04-05")
	}
	model := unsafeChars.ReplaceAllString(spec.Config.Model, "_")
	if model == "" {
		model = spec.Config.Provider
	}
	filename := filepath.Join(dir, fmt.Sprintf("%s-%s.yaml", model, timestamp))

	data, err := yaml.Marshal(&spec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}

	return filename, nil
}
