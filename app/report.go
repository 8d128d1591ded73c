package app

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/montanaflynn/stats"

	"qaebench/domain/core"
	"qaebench/domain/run"
)

// extremesCount is how many largest and smallest values a summary lists.
const extremesCount = 3

// IndexedValue is a value and the trial it came from.
type IndexedValue struct {
	Trial int     `json:"trial"`
	Value float64 `json:"value"`
}

// Summary describes one quantity over all trials.
type Summary struct {
	Name     string         `json:"name"`
	Count    int            `json:"count"`
	Mean     float64        `json:"mean"`
	Median   float64        `json:"median"`
	Largest  []IndexedValue `json:"largest,omitempty"`
	Smallest []IndexedValue `json:"smallest,omitempty"`
}

// RunReport summarises the final-iteration quantities of a run.
type RunReport struct {
	RunID     core.RunID `json:"run_id"`
	Label     string     `json:"label"`
	Completed int        `json:"completed"`
	Requested int        `json:"requested"`
	Summaries []Summary  `json:"summaries"`
}

// BuildReport summarises final squared errors, stds and query counts.
func BuildReport(results *run.Results) (*RunReport, error) {
	if !results.HasData() {
		return nil, fmt.Errorf("%w: %s", core.ErrNoData, results.Summary())
	}

	report := &RunReport{
		RunID:     results.RunID,
		Label:     results.Label,
		Completed: results.Completed,
		Requested: results.Requested,
	}
	quantities := []struct {
		name   string
		values []float64
	}{
		{"squared error", results.FinalErrors()},
		{"std", results.FinalStds()},
		{"query count", results.FinalQueries()},
	}
	for _, q := range quantities {
		s, err := summarize(q.name, q.values)
		if err != nil {
			return nil, fmt.Errorf("summarizing %s: %w", q.name, err)
		}
		report.Summaries = append(report.Summaries, s)
	}
	return report, nil
}

func summarize(name string, values []float64) (Summary, error) {
	mean, err := stats.Mean(values)
	if err != nil {
		return Summary{}, err
	}
	median, err := stats.Median(values)
	if err != nil {
		return Summary{}, err
	}

	s := Summary{Name: name, Count: len(values), Mean: mean, Median: median}
	if len(values) > extremesCount {
		indexed := make([]IndexedValue, len(values))
		for i, v := range values {
			indexed[i] = IndexedValue{Trial: i, Value: v}
		}
		sort.SliceStable(indexed, func(i, j int) bool { return indexed[i].Value > indexed[j].Value })
		s.Largest = append([]IndexedValue(nil), indexed[:extremesCount]...)
		for i := len(indexed) - 1; i >= len(indexed)-extremesCount; i-- {
			s.Smallest = append(s.Smallest, indexed[i])
		}
	}
	return s, nil
}

// Markdown renders the report as a Markdown document.
func (r *RunReport) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Run %s\n\n", r.Label)
	fmt.Fprintf(&b, "Run `%s`: %d of %d trials completed.\n\n", r.RunID, r.Completed, r.Requested)

	b.WriteString("| Quantity | Mean | Median |\n|---|---|---|\n")
	for _, s := range r.Summaries {
		fmt.Fprintf(&b, "| %s | %.4g | %.4g |\n", s.Name, s.Mean, s.Median)
	}

	for _, s := range r.Summaries {
		if len(s.Largest) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n", s.Name)
		fmt.Fprintf(&b, "- %d largest: %s\n", len(s.Largest), formatIndexed(s.Largest))
		fmt.Fprintf(&b, "- %d smallest: %s\n", len(s.Smallest), formatIndexed(s.Smallest))
	}
	return b.String()
}

// HTML renders the Markdown report to HTML.
func (r *RunReport) HTML() []byte {
	return markdown.ToHTML([]byte(r.Markdown()), nil, nil)
}

func formatIndexed(values []IndexedValue) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("trial %d = %.4g", v.Trial+1, v.Value)
	}
	return strings.Join(parts, ", ")
}
