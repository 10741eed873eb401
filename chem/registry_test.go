package chem

import (
	"math/rand/v2"
	"testing"
)

func TestRegistryKingdoms(t *testing.T) {
	r := NewRegistry()
	kingdoms := r.Kingdoms()
	if len(kingdoms) != 4 {
		t.Fatalf("got %d kingdoms, want 4", len(kingdoms))
	}
	for _, k := range kingdoms {
		if len(r.Templates(k)) == 0 {
			t.Errorf("kingdom %s has no templates", k)
		}
	}
	// Sorted order so iteration is deterministic.
	for i := 1; i < len(kingdoms); i++ {
		if kingdoms[i-1] >= kingdoms[i] {
			t.Errorf("kingdoms not sorted: %v", kingdoms)
		}
	}
}

func TestTemplateSampleWithinBounds(t *testing.T) {
	r := NewRegistry()
	rng := rand.New(rand.NewPCG(1, 0))
	for _, k := range r.Kingdoms() {
		for _, tmpl := range r.Templates(k) {
			for i := 0; i < 20; i++ {
				p := tmpl.Sample(rng)
				if p.Mass < MinMass || p.Mass > PropertyMax {
					t.Errorf("%s: mass %v outside [%v, %v]", tmpl.Name, p.Mass, MinMass, PropertyMax)
				}
				if p.Integrity < 0 || p.Integrity > PropertyMax {
					t.Errorf("%s: integrity %v out of range", tmpl.Name, p.Integrity)
				}
			}
		}
	}
}

func TestPropertiesClamp(t *testing.T) {
	p := Properties{Mass: -3, Integrity: 99, Photosynthesis: -1, Armor: 11}
	p.Clamp()
	if p.Mass != MinMass {
		t.Errorf("mass = %v, want %v", p.Mass, MinMass)
	}
	if p.Integrity != PropertyMax {
		t.Errorf("integrity = %v, want %v", p.Integrity, PropertyMax)
	}
	if p.Photosynthesis != 0 {
		t.Errorf("photosynthesis = %v, want 0", p.Photosynthesis)
	}
	if p.Armor != PropertyMax {
		t.Errorf("armor = %v, want %v", p.Armor, PropertyMax)
	}
}

func TestPickTemplateFallsBackToCarbon(t *testing.T) {
	r := NewRegistry()
	rng := rand.New(rand.NewPCG(2, 0))
	tmpl := r.PickTemplate(Kingdom("Unknown"), rng)
	if tmpl.Kingdom != KingdomCarbon {
		t.Errorf("fallback kingdom = %s, want %s", tmpl.Kingdom, KingdomCarbon)
	}
}

func TestInventNameGrammar(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 0))
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		name := InventName(rng)
		if name == "" {
			t.Fatal("empty invented name")
		}
		seen[name] = true
	}
	if len(seen) < 10 {
		t.Errorf("only %d distinct names in 50 draws, grammar too narrow", len(seen))
	}
}
