package vectorindex

import (
	"math"
	"testing"
)

func TestSimilarity_NormalRange(t *testing.T) {
	cases := []struct {
		distance float64
		want     float64
	}{
		{0, 1},
		{0.25, 0.75},
		{0.5, 0.5},
		{0.9, 0.1},
	}
	for _, tc := range cases {
		got := Similarity(tc.distance)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("Similarity(%v) = %v, want %v", tc.distance, got, tc.want)
		}
	}
}

func TestSimilarity_ExponentialDecay(t *testing.T) {
	// Distances at or above 1.0 use exp(-d/10).
	for _, d := range []float64{1.0, 1.5, 2.0, 5.0, 50.0} {
		got := Similarity(d)
		want := math.Exp(-d / 10)
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("Similarity(%v) = %v, want %v", d, got, want)
		}
	}
}

func TestSimilarity_Bounded(t *testing.T) {
	for d := -0.5; d < 100; d += 0.1 {
		s := Similarity(d)
		if s < 0 || s > 1 {
			t.Fatalf("Similarity(%v) = %v out of [0,1]", d, s)
		}
	}
}

func TestSimilarity_MonotonePerBranch(t *testing.T) {
	// Non-increasing within each formula branch.
	prev := Similarity(0)
	for d := 0.01; d < 1.0; d += 0.01 {
		s := Similarity(d)
		if s > prev {
			t.Fatalf("similarity increased within [0,1) branch at d=%v", d)
		}
		prev = s
	}

	prev = Similarity(1.0)
	for d := 1.1; d < 20; d += 0.1 {
		s := Similarity(d)
		if s > prev {
			t.Fatalf("similarity increased within decay branch at d=%v", d)
		}
		prev = s
	}
}

func TestReciprocalSimilarity(t *testing.T) {
	cases := []struct {
		distance float64
		want     float64
	}{
		{0, 1},
		{1, 0.5},
		{3, 0.25},
	}
	for _, tc := range cases {
		got := ReciprocalSimilarity(tc.distance)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("ReciprocalSimilarity(%v) = %v, want %v", tc.distance, got, tc.want)
		}
	}

	prev := 1.0
	for d := 0.0; d < 50; d += 0.5 {
		s := ReciprocalSimilarity(d)
		if s < 0 || s > 1 {
			t.Fatalf("ReciprocalSimilarity(%v) = %v out of [0,1]", d, s)
		}
		if s > prev {
			t.Fatalf("ReciprocalSimilarity not non-increasing at d=%v", d)
		}
		prev = s
	}
}
