package testkit

import (
	"bytes"
	"strings"
	"testing"

	"defecteval/domain/dataset"
)

func TestReleaseDataGenerator_ScenarioCounts(t *testing.T) {
	ds := NewReleaseDataGenerator(ScenarioConfig()).Generate()

	counts := ds.ReleaseCounts()
	want := []dataset.ReleaseCount{
		{Release: 1, Total: 10, Defective: 2},
		{Release: 2, Total: 10, Defective: 3},
		{Release: 3, Total: 10, Defective: 1},
	}
	if len(counts) != len(want) {
		t.Fatalf("Expected %d releases, got %d", len(want), len(counts))
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("Release %d: expected %+v, got %+v", i+1, want[i], counts[i])
		}
	}
	if err := dataset.ValidateReleaseOrdering(ds.Instances); err != nil {
		t.Errorf("Generated releases are not ordered: %v", err)
	}
}

func TestReleaseDataGenerator_Deterministic(t *testing.T) {
	a := NewReleaseDataGenerator(DefaultReleaseConfig()).Generate()
	b := NewReleaseDataGenerator(DefaultReleaseConfig()).Generate()

	var bufA, bufB bytes.Buffer
	if err := WriteDelimited(&bufA, a, ",", dataset.DefaultLabelTokens()); err != nil {
		t.Fatal(err)
	}
	if err := WriteDelimited(&bufB, b, ",", dataset.DefaultLabelTokens()); err != nil {
		t.Fatal(err)
	}
	if bufA.String() != bufB.String() {
		t.Error("Same seed produced different datasets")
	}

	lines := strings.Split(strings.TrimSpace(bufA.String()), "\n")
	if len(lines) != a.Len()+1 {
		t.Errorf("Expected %d lines, got %d", a.Len()+1, len(lines))
	}
	if !strings.HasPrefix(lines[0], "Version,File Name,LOC") {
		t.Errorf("Unexpected header %q", lines[0])
	}
}
