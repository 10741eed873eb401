// Package telemetry turns per-generation outcomes into structured records
// and writes them to CSV without ever blocking the evolutionary loop.
package telemetry

import (
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Record is one generation's structured telemetry row.
type Record struct {
	Generation int `csv:"generation"`

	CountCarbon  int `csv:"count_carbon"`
	CountSilicon int `csv:"count_silicon"`
	CountFerrous int `csv:"count_ferrous"`
	CountPlasma  int `csv:"count_plasma"`

	BestFitness float64 `csv:"best_fitness"`
	MeanFitness float64 `csv:"mean_fitness"`
	StdFitness  float64 `csv:"std_fitness"`

	BestComplexity float64 `csv:"best_complexity"`
	MeanComplexity float64 `csv:"mean_complexity"`

	// Events is a semicolon-joined list of threshold crossings and
	// loop events (cataclysms, dominant-kingdom shifts) this generation.
	Events string `csv:"events"`
}

// SetEvents joins event descriptions into the CSV-safe Events field.
func (r *Record) SetEvents(events []string) {
	r.Events = strings.Join(events, ";")
}

// Summarize fills the fitness and complexity aggregates from raw slices.
func (r *Record) Summarize(fitnesses, complexities []float64) {
	if len(fitnesses) > 0 {
		r.MeanFitness = stat.Mean(fitnesses, nil)
		r.StdFitness = stat.StdDev(fitnesses, nil)
		r.BestFitness = max64(fitnesses)
	}
	if len(complexities) > 0 {
		r.MeanComplexity = stat.Mean(complexities, nil)
		r.BestComplexity = max64(complexities)
	}
}

func max64(xs []float64) float64 {
	best := xs[0]
	for _, x := range xs[1:] {
		if x > best {
			best = x
		}
	}
	return best
}
