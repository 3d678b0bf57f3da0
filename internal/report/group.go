package report

import (
	"ollama-performance/internal/metrics"
	"ollama-performance/internal/types"
)

// ModelStats holds the statistics of the measurements served by one model.
type ModelStats struct {
	Model string
	Stats types.Statistics
}

// GroupByModel summarizes measurements per model, in order of first use.
func GroupByModel(measurements []types.Measurement) []ModelStats {
	var order []string
	byModel := make(map[string][]types.Measurement)
	for _, m := range measurements {
		if _, ok := byModel[m.Model]; !ok {
			order = append(order, m.Model)
		}
		byModel[m.Model] = append(byModel[m.Model], m)
	}

	groups := make([]ModelStats, 0, len(order))
	for _, model := range order {
		groups = append(groups, ModelStats{
			Model: model,
			Stats: metrics.Summarize(byModel[model]),
		})
	}
	return groups
}
