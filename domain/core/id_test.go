package core

import (
	"errors"
	"strings"
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}
}

// TestParseRunID tests run ID parsing
func TestParseRunID(t *testing.T) {
	tests := []struct {
		input    string
		expected RunID
		hasError bool
	}{
		{"valid-id", RunID("valid-id"), false},
		{"", "", true},
		{"   ", "", true},
	}

	for _, tt := range tests {
		result, err := ParseRunID(tt.input)
		if tt.hasError {
			if err == nil {
				t.Errorf("ParseRunID(%q) expected error, got nil", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRunID(%q) unexpected error: %v", tt.input, err)
		}
		if result != tt.expected {
			t.Errorf("ParseRunID(%q) = %q, expected %q", tt.input, result, tt.expected)
		}
	}
}

func TestComputeConfigHash_OrderIndependent(t *testing.T) {
	a := ComputeConfigHash(map[string]string{"project": "bookkeeper", "releases": "7", "seed": "1"})
	b := ComputeConfigHash(map[string]string{"seed": "1", "releases": "7", "project": "bookkeeper"})
	if a != b {
		t.Errorf("hash depends on map order: %s vs %s", a, b)
	}

	c := ComputeConfigHash(map[string]string{"project": "bookkeeper", "releases": "8", "seed": "1"})
	if a == c {
		t.Error("different settings produced the same hash")
	}
}

func TestComputeOutputHash_RowOrderMatters(t *testing.T) {
	a := ComputeOutputHash([]string{"r1", "r2"})
	b := ComputeOutputHash([]string{"r2", "r1"})
	if a == b {
		t.Error("row order should change the output hash")
	}
	if len(Hash(a).Short()) != 12 {
		t.Errorf("short hash length = %d", len(Hash(a).Short()))
	}
}

func TestComputeDatasetHash(t *testing.T) {
	h1, err := ComputeDatasetHash(strings.NewReader("Version;File;LOC;Buggy\n1;a.java;10;No\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h2, _ := ComputeDatasetHash(strings.NewReader("Version;File;LOC;Buggy\n1;a.java;10;No\n"))
	if h1 != h2 || h1 == "" {
		t.Errorf("expected stable non-empty hash, got %q and %q", h1, h2)
	}
}

func TestErrorClassification(t *testing.T) {
	if !IsSplitError(NewLeakageError("training", 3, 3)) {
		t.Error("leakage should be a split error")
	}
	if !IsDataShortage(NewEmptyReleaseError(4)) {
		t.Error("empty release should be a data shortage")
	}
	if !errors.Is(ErrSingleClass, ErrInsufficientData) {
		t.Error("single class should wrap insufficient data")
	}
	if IsSplitError(ErrNotFitted) {
		t.Error("not-fitted is not a split error")
	}
}
