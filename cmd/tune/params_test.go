package main

import (
	"testing"

	"github.com/pthm-cable/crucible/config"
)

func TestNormalizeDenormalizeRoundTrip(t *testing.T) {
	pv := NewParamVector()
	raw := pv.DefaultVector()

	norm := pv.Normalize(raw)
	for i, v := range norm {
		if v < 0 || v > 1 {
			t.Errorf("normalized %s = %v, outside [0,1]", pv.Specs[i].Name, v)
		}
	}

	back := pv.Denormalize(norm)
	for i := range raw {
		if diff := back[i] - raw[i]; diff > 1e-12 || diff < -1e-12 {
			t.Errorf("%s round trip: %v -> %v", pv.Specs[i].Name, raw[i], back[i])
		}
	}
}

func TestClampEnforcesBounds(t *testing.T) {
	pv := NewParamVector()
	low := make([]float64, pv.Dim())
	high := make([]float64, pv.Dim())
	for i := range low {
		low[i] = -100
		high[i] = 100
	}
	for i, v := range pv.Clamp(low) {
		if v != pv.Specs[i].Min {
			t.Errorf("%s clamped low = %v, want %v", pv.Specs[i].Name, v, pv.Specs[i].Min)
		}
	}
	for i, v := range pv.Clamp(high) {
		if v != pv.Specs[i].Max {
			t.Errorf("%s clamped high = %v, want %v", pv.Specs[i].Name, v, pv.Specs[i].Max)
		}
	}
}

func TestApplyToConfig(t *testing.T) {
	pv := NewParamVector()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}

	values := pv.DefaultVector()
	values[0] = 0.8 // pressure
	values[6] = 7.5 // zygote_energy
	pv.ApplyToConfig(cfg, values)

	if cfg.Evolution.Pressure != 0.8 {
		t.Errorf("pressure = %v, want 0.8", cfg.Evolution.Pressure)
	}
	if cfg.Development.ZygoteEnergy != 7.5 {
		t.Errorf("zygote energy = %v, want 7.5", cfg.Development.ZygoteEnergy)
	}
	if cfg.RedQueen.Virulence != 0.3 {
		t.Errorf("virulence = %v, want default 0.3", cfg.RedQueen.Virulence)
	}
}
