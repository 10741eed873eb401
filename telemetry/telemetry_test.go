package telemetry

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestSummarize(t *testing.T) {
	var r Record
	r.Summarize([]float64{1, 2, 3, 4}, []float64{10, 20})

	if r.MeanFitness != 2.5 {
		t.Errorf("mean fitness = %v, want 2.5", r.MeanFitness)
	}
	if r.BestFitness != 4 {
		t.Errorf("best fitness = %v, want 4", r.BestFitness)
	}
	// Sample standard deviation of 1..4.
	if want := math.Sqrt(5.0 / 3.0); math.Abs(r.StdFitness-want) > 1e-12 {
		t.Errorf("std fitness = %v, want %v", r.StdFitness, want)
	}
	if r.MeanComplexity != 15 || r.BestComplexity != 20 {
		t.Errorf("complexity = (%v, %v), want (15, 20)",
			r.MeanComplexity, r.BestComplexity)
	}
}

func TestSummarizeEmptyIsZero(t *testing.T) {
	var r Record
	r.Summarize(nil, nil)
	if r.MeanFitness != 0 || r.BestFitness != 0 {
		t.Errorf("empty summarize = %+v, want zeros", r)
	}
}

func TestSetEvents(t *testing.T) {
	var r Record
	r.SetEvents([]string{"cataclysm", "sensor evolved"})
	if r.Events != "cataclysm;sensor evolved" {
		t.Errorf("events = %q", r.Events)
	}
	r.SetEvents(nil)
	if r.Events != "" {
		t.Errorf("events after nil = %q, want empty", r.Events)
	}
}

func TestRecorderDeliversInOrder(t *testing.T) {
	var mu sync.Mutex
	var got []int
	rec := NewRecorder(8, func(r Record) {
		mu.Lock()
		got = append(got, r.Generation)
		mu.Unlock()
	})
	for i := 0; i < 5; i++ {
		rec.Emit(Record{Generation: i})
	}
	rec.Close()

	if len(got) != 5 {
		t.Fatalf("delivered %d records, want 5", len(got))
	}
	for i, g := range got {
		if g != i {
			t.Errorf("record %d has generation %d", i, g)
		}
	}
	if rec.Dropped() != 0 {
		t.Errorf("dropped = %d, want 0", rec.Dropped())
	}
}

func TestRecorderDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	rec := NewRecorder(1, func(Record) { <-block })

	// One record occupies the sink, one fills the buffer; the rest must be
	// dropped without blocking this goroutine.
	for i := 0; i < 10; i++ {
		rec.Emit(Record{Generation: i})
	}
	if rec.Dropped() == 0 {
		t.Error("no records dropped despite a stalled sink")
	}
	close(block)
	rec.Close()
}

func TestOutputManagerWritesCSV(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}
	if err := om.WriteRecord(Record{Generation: 0, BestFitness: 1.5}); err != nil {
		t.Fatalf("first WriteRecord: %v", err)
	}
	if err := om.WriteRecord(Record{Generation: 1, BestFitness: 2.5}); err != nil {
		t.Fatalf("second WriteRecord: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "generations.csv"))
	if err != nil {
		t.Fatalf("reading csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("csv has %d lines, want header plus 2 rows:\n%s", len(lines), data)
	}
	if !strings.Contains(lines[0], "best_fitness") {
		t.Errorf("header missing best_fitness column: %q", lines[0])
	}
	if strings.Contains(lines[2], "best_fitness") {
		t.Error("header repeated on data row")
	}
}

func TestNilOutputManagerDiscards(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil {
		t.Fatalf("empty dir should disable output, got %v", err)
	}
	if om != nil {
		t.Fatal("empty dir should return a nil manager")
	}
	if err := om.WriteRecord(Record{}); err != nil {
		t.Errorf("nil WriteRecord = %v, want nil", err)
	}
	if err := om.Close(); err != nil {
		t.Errorf("nil Close = %v, want nil", err)
	}
	if om.Dir() != "" {
		t.Errorf("nil Dir = %q, want empty", om.Dir())
	}
}

func TestJSONRoundTrip(t *testing.T) {
	type payload struct {
		Name  string  `json:"name"`
		Score float64 `json:"score"`
	}
	path := filepath.Join(t.TempDir(), "state.json")

	if err := WriteJSON(path, payload{Name: "run-1", Score: 3.25}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after commit")
	}

	var got payload
	if err := ReadJSON(path, &got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.Name != "run-1" || got.Score != 3.25 {
		t.Errorf("round trip = %+v", got)
	}
}

func TestReadJSONMissingFileErrors(t *testing.T) {
	var v struct{}
	if err := ReadJSON(filepath.Join(t.TempDir(), "absent.json"), &v); err == nil {
		t.Error("expected error for missing file")
	}
}
