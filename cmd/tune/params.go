// Package main provides CMA-ES tuning of the evolutionary loop's
// hyperparameters toward maximal end-of-run mean fitness.
package main

import (
	"github.com/pthm-cable/crucible/config"
)

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name    string
	Min     float64
	Max     float64
	Default float64
}

// ParamVector holds the set of all tunable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of tunable loop parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "pressure", Min: 0.05, Max: 1.0, Default: 0.5},
			{Name: "mutation_rate", Min: 0.01, Max: 0.5, Default: 0.1},
			{Name: "innovation_rate", Min: 0.005, Max: 0.3, Default: 0.05},
			{Name: "meta_rate", Min: 0.0, Max: 0.1, Default: 0.01},
			{Name: "crossover_rate", Min: 0.0, Max: 0.9, Default: 0.3},
			{Name: "virulence", Min: 0.0, Max: 1.0, Default: 0.3},
			{Name: "zygote_energy", Min: 1.0, Max: 10.0, Default: 4.0},
			{Name: "weight_complexity", Min: 0.0, Max: 1.0, Default: 0.25},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
// Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)
	i := 0

	cfg.Evolution.Pressure = clamped[i]
	i++
	cfg.Evolution.MutationRate = clamped[i]
	i++
	cfg.Evolution.InnovationRate = clamped[i]
	i++
	cfg.Evolution.MetaRate = clamped[i]
	i++
	cfg.Evolution.CrossoverRate = clamped[i]
	i++
	cfg.RedQueen.Virulence = clamped[i]
	i++
	cfg.Development.ZygoteEnergy = clamped[i]
	i++
	cfg.Fitness.WeightComplexity = clamped[i]
}
