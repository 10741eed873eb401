// Package grid owns the shared 2D resource grid: per-cell environmental
// fields, their diffusion and decay, and the mining/terraform mutations the
// developmental engine is allowed to apply.
//
// The grid is bounded. Neighbor lookups omit off-grid positions, and any
// coordinate outside the grid is a programming contract violation: the
// accessors panic rather than wrap or recover.
package grid

import (
	"fmt"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Field identifies one environmental field.
type Field int

const (
	FieldLight Field = iota
	FieldMinerals
	FieldWater
	FieldTemperature
	FieldDetritus
	numFields
)

var fieldNames = [numFields]string{"light", "minerals", "water", "temperature", "detritus"}

func (f Field) String() string { return fieldNames[f] }

// fieldMax bounds each field from above; the lower bound is zero.
var fieldMax = [numFields]float64{1, 1, 1, 1, 10}

// Max returns the field's upper bound.
func (f Field) Max() float64 { return fieldMax[f] }

// Point is a grid coordinate.
type Point struct {
	X, Y int
}

// Options configures grid construction and stepping.
type Options struct {
	Octaves      int     // noise octaves
	Scale        float64 // base noise frequency
	Lacunarity   float64 // frequency multiplier per octave
	Gain         float64 // amplitude multiplier per octave
	Diffusion    float64 // fraction moved toward neighborhood mean per step
	Decay        float64 // fraction subtracted per step
	Regen        float64 // fraction regrown toward the initial capacity per step
	Neighborhood int     // 4 or 8
}

// DefaultOptions are the construction defaults used by tests.
func DefaultOptions() Options {
	return Options{
		Octaves:      4,
		Scale:        4,
		Lacunarity:   2,
		Gain:         0.5,
		Diffusion:    0.05,
		Decay:        0.01,
		Regen:        0.1,
		Neighborhood: 8,
	}
}

// Grid is the shared resource grid. It is not safe for concurrent mutation;
// the evolutionary loop gives each parallel worker its own copy.
type Grid struct {
	W, H int
	Seed int64

	opts   Options
	fields [numFields][]float64
	// capacity is the field state right after initialization; regen pulls
	// light/minerals/water back toward it so a generation cannot
	// permanently sterilize the world.
	capacity [numFields][]float64
	tmp      []float64
}

// New builds a deterministic grid from a seed using multi-octave
// opensimplex noise. The same (w, h, seed, opts) always yields the same field.
func New(w, h int, seed int64, opts Options) *Grid {
	if w <= 0 || h <= 0 {
		panic(fmt.Sprintf("grid: invalid dimensions %dx%d", w, h))
	}
	if opts.Neighborhood != 4 {
		opts.Neighborhood = 8
	}
	g := &Grid{W: w, H: h, Seed: seed, opts: opts, tmp: make([]float64, w*h)}
	for f := Field(0); f < numFields; f++ {
		g.fields[f] = make([]float64, w*h)
		g.capacity[f] = make([]float64, w*h)
	}

	// One noise source per generated field, offset from the grid seed so the
	// fields are decorrelated but jointly deterministic.
	for _, gen := range []struct {
		field Field
		seed  int64
	}{
		{FieldLight, seed},
		{FieldMinerals, seed + 1},
		{FieldWater, seed + 2},
		{FieldTemperature, seed + 3},
	} {
		noise := opensimplex.NewNormalized(gen.seed)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				g.fields[gen.field][y*w+x] = g.fbm(noise, x, y)
			}
		}
	}
	// Detritus starts empty; corpses fill it.
	for f := Field(0); f < numFields; f++ {
		copy(g.capacity[f], g.fields[f])
	}
	return g
}

// fbm accumulates octaves of normalized simplex noise.
func (g *Grid) fbm(noise opensimplex.Noise, x, y int) float64 {
	u := (float64(x) + 0.5) / float64(g.W)
	v := (float64(y) + 0.5) / float64(g.H)

	sum := 0.0
	amp := 0.5
	freq := g.opts.Scale
	for o := 0; o < g.opts.Octaves; o++ {
		sum += amp * noise.Eval2(u*freq, v*freq)
		freq *= g.opts.Lacunarity
		amp *= g.opts.Gain
	}
	return clamp(sum, 0, 1)
}

func (g *Grid) idx(x, y int) int {
	if x < 0 || x >= g.W || y < 0 || y >= g.H {
		panic(fmt.Sprintf("grid: coordinates (%d,%d) outside %dx%d", x, y, g.W, g.H))
	}
	return y*g.W + x
}

// InBounds reports whether (x, y) is on the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.W && y >= 0 && y < g.H
}

// Get returns a field value. Out-of-bounds coordinates panic.
func (g *Grid) Get(f Field, x, y int) float64 {
	return g.fields[f][g.idx(x, y)]
}

// Set writes a field value, clamped to the field's bounds.
func (g *Grid) Set(f Field, x, y int, v float64) {
	g.fields[f][g.idx(x, y)] = clamp(v, 0, fieldMax[f])
}

// Deposit adds to a field, clamped to the field's bounds.
func (g *Grid) Deposit(f Field, x, y int, amount float64) {
	i := g.idx(x, y)
	g.fields[f][i] = clamp(g.fields[f][i]+amount, 0, fieldMax[f])
}

// Mine subtracts up to amount from the mineral field, floored at zero,
// and returns what was actually removed. Side effects are confined to the
// targeted cell.
func (g *Grid) Mine(x, y int, amount float64) float64 {
	i := g.idx(x, y)
	take := amount
	if take > g.fields[FieldMinerals][i] {
		take = g.fields[FieldMinerals][i]
	}
	if take < 0 {
		take = 0
	}
	g.fields[FieldMinerals][i] -= take
	return take
}

// Consume subtracts up to amount from any field (detritus harvesting),
// floored at zero, returning the removed amount.
func (g *Grid) Consume(f Field, x, y int, amount float64) float64 {
	i := g.idx(x, y)
	take := amount
	if take > g.fields[f][i] {
		take = g.fields[f][i]
	}
	if take < 0 {
		take = 0
	}
	g.fields[f][i] -= take
	return take
}

// neighborOffsets8 is the fixed scan order for neighborhoods: clockwise from
// north. Action targeting depends on this order being stable.
var neighborOffsets8 = [8]Point{
	{0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1},
}

var neighborOffsets4 = [4]Point{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

// Neighbors appends the in-bounds neighbors of (x, y) to dst and returns it.
// Up to 8 positions, no wraparound.
func (g *Grid) Neighbors(dst []Point, x, y int) []Point {
	g.idx(x, y) // bounds contract applies to the center too
	for _, o := range neighborOffsets8 {
		nx, ny := x+o.X, y+o.Y
		if g.InBounds(nx, ny) {
			dst = append(dst, Point{nx, ny})
		}
	}
	return dst
}

// Step applies one diffusion and decay pass to every field, then regrows the
// generated fields toward their initial capacity. Called once per outer tick.
func (g *Grid) Step() {
	for f := Field(0); f < numFields; f++ {
		g.diffuse(f)
		if g.opts.Decay > 0 {
			for i := range g.fields[f] {
				g.fields[f][i] *= 1 - g.opts.Decay
			}
		}
	}
	if g.opts.Regen > 0 {
		for _, f := range []Field{FieldLight, FieldMinerals, FieldWater, FieldTemperature} {
			for i := range g.fields[f] {
				g.fields[f][i] += (g.capacity[f][i] - g.fields[f][i]) * g.opts.Regen
				g.fields[f][i] = clamp(g.fields[f][i], 0, fieldMax[f])
			}
		}
	}
}

// diffuse moves each cell a configurable fraction toward the arithmetic mean
// of its in-bounds neighborhood. Edge cells average over fewer neighbors.
func (g *Grid) diffuse(f Field) {
	a := g.opts.Diffusion
	if a <= 0 {
		return
	}
	src := g.fields[f]
	dst := g.tmp

	offsets := neighborOffsets8[:]
	if g.opts.Neighborhood == 4 {
		offsets = neighborOffsets4[:]
	}

	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			sum := 0.0
			n := 0
			for _, o := range offsets {
				nx, ny := x+o.X, y+o.Y
				if g.InBounds(nx, ny) {
					sum += src[ny*g.W+nx]
					n++
				}
			}
			i := y*g.W + x
			mean := src[i]
			if n > 0 {
				mean = sum / float64(n)
			}
			dst[i] = src[i] + (mean-src[i])*a
		}
	}
	copy(src, dst)
}

// Reset restores every field to its initial capacity and clears detritus.
func (g *Grid) Reset() {
	for f := Field(0); f < numFields; f++ {
		copy(g.fields[f], g.capacity[f])
	}
}

// State is the serializable field state for snapshots.
type State struct {
	W      int         `json:"w"`
	H      int         `json:"h"`
	Seed   int64       `json:"seed"`
	Fields [][]float64 `json:"fields"`
}

// Snapshot copies the current field state.
func (g *Grid) Snapshot() State {
	s := State{W: g.W, H: g.H, Seed: g.Seed, Fields: make([][]float64, numFields)}
	for f := Field(0); f < numFields; f++ {
		s.Fields[f] = append([]float64(nil), g.fields[f]...)
	}
	return s
}

// Restore overwrites the field state from a snapshot. Dimension mismatches
// are a caller defect and panic.
func (g *Grid) Restore(s State) {
	if s.W != g.W || s.H != g.H {
		panic(fmt.Sprintf("grid: snapshot is %dx%d, grid is %dx%d", s.W, s.H, g.W, g.H))
	}
	for f := Field(0); f < numFields && f < Field(len(s.Fields)); f++ {
		copy(g.fields[f], s.Fields[f])
	}
}

// Total sums a field across the grid (telemetry).
func (g *Grid) Total(f Field) float64 {
	sum := 0.0
	for _, v := range g.fields[f] {
		sum += v
	}
	return sum
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
