package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// EvaluationResult represents the outcome for a single sample
type EvaluationResult struct {
	ID             string
	Label          string
	Predicted      string
	Comparison     *Comparison
	ProcessingTime time.Duration
	Error          string // If recognition failed
}

// AggregateResults represents aggregated evaluation metrics
type AggregateResults struct {
	TotalRecords int
	SuccessCount int
	FailureCount int

	ExactMatches  int
	FoldedMatches int

	// Accuracy is measured over every record; failures count as misses
	ExactAccuracy      float64
	FoldedAccuracy     float64
	AverageSimilarity  float64
	CharacterErrorRate float64

	// Timing
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration

	// Detailed results
	Results []EvaluationResult

	// Metadata
	EvaluationDate time.Time
	Provider       string
	Model          string
	SampleSize     int
}

// AggregateEvaluationResults aggregates multiple evaluation results
func AggregateEvaluationResults(results []EvaluationResult, provider, model string) *AggregateResults {
	agg := &AggregateResults{
		TotalRecords:   len(results),
		Results:        results,
		EvaluationDate: time.Now(),
		Provider:       provider,
		Model:          model,
		SampleSize:     len(results),
	}

	var totalSimilarity float64
	var totalDistance, totalRunes int
	var totalDuration, successDuration time.Duration

	for _, result := range results {
		totalDuration += result.ProcessingTime
		labelRunes := len([]rune(strings.TrimSpace(result.Label)))
		totalRunes += labelRunes

		if result.Error != "" || result.Comparison == nil {
			agg.FailureCount++
			totalDistance += labelRunes
			continue
		}

		agg.SuccessCount++
		successDuration += result.ProcessingTime

		if result.Comparison.Exact {
			agg.ExactMatches++
		}
		if result.Comparison.Folded {
			agg.FoldedMatches++
		}
		totalSimilarity += result.Comparison.Similarity
		totalDistance += result.Comparison.Distance
	}

	if agg.TotalRecords > 0 {
		agg.ExactAccuracy = float64(agg.ExactMatches) / float64(agg.TotalRecords)
		agg.FoldedAccuracy = float64(agg.FoldedMatches) / float64(agg.TotalRecords)
		agg.AverageSimilarity = totalSimilarity / float64(agg.TotalRecords)
	}
	if totalRunes > 0 {
		agg.CharacterErrorRate = float64(totalDistance) / float64(totalRunes)
	}
	if agg.SuccessCount > 0 {
		agg.AverageProcessingTime = successDuration / time.Duration(agg.SuccessCount)
	}
	agg.TotalProcessingTime = totalDuration

	return agg
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

// PrintSummary writes a human-readable summary of the evaluation
func (a *AggregateResults) PrintSummary(w io.Writer) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 70))
	fmt.Fprintln(w, "OCR EVALUATION SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "Evaluation Date: %s\n", a.EvaluationDate.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Provider: %s\n", a.Provider)
	fmt.Fprintf(w, "Model: %s\n", a.Model)
	fmt.Fprintf(w, "Sample Size: %d records\n", a.SampleSize)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "PROCESSING STATISTICS")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	fmt.Fprintf(w, "Total Records: %d\n", a.TotalRecords)
	fmt.Fprintf(w, "Successful: %d (%.1f%%)\n", a.SuccessCount, percent(a.SuccessCount, a.TotalRecords))
	fmt.Fprintf(w, "Failed: %d (%.1f%%)\n", a.FailureCount, percent(a.FailureCount, a.TotalRecords))
	fmt.Fprintf(w, "Average Processing Time: %s\n", a.AverageProcessingTime)
	fmt.Fprintf(w, "Total Processing Time: %s\n", a.TotalProcessingTime)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "ACCURACY")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	fmt.Fprintf(w, "Exact Matches: %d (%.2f%%)\n", a.ExactMatches, a.ExactAccuracy*100)
	fmt.Fprintf(w, "Case-insensitive Matches: %d (%.2f%%)\n", a.FoldedMatches, a.FoldedAccuracy*100)
	fmt.Fprintf(w, "Average Similarity: %.3f\n", a.AverageSimilarity)
	fmt.Fprintf(w, "Character Error Rate: %.3f\n", a.CharacterErrorRate)
	fmt.Fprintln(w, strings.Repeat("=", 70))
}

// SaveToJSON saves the aggregate results to a JSON file
func (a *AggregateResults) SaveToJSON(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(a); err != nil {
		return fmt.Errorf("failed to encode results to JSON: %w", err)
	}

	return nil
}
