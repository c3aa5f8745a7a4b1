package types

import "testing"

func TestComplexityOrdinal(t *testing.T) {
	tests := []struct {
		c       Complexity
		ordinal int
	}{
		{ComplexitySuperEasy, 0},
		{ComplexityEasy, 1},
		{ComplexityMedium, 2},
		{ComplexityHard, 3},
		{ComplexitySuperHard, 4},
		{Complexity("impossible"), -1},
	}

	for _, tt := range tests {
		if got := tt.c.Ordinal(); got != tt.ordinal {
			t.Errorf("%s.Ordinal() = %d, want %d", tt.c, got, tt.ordinal)
		}
	}
}

func TestCompareComplexityReflexive(t *testing.T) {
	for _, c := range Complexities {
		if got := CompareComplexity(c, c); got != 0 {
			t.Errorf("CompareComplexity(%s, %s) = %d, want 0", c, c, got)
		}
	}
}

func TestCompareComplexityTotalOrder(t *testing.T) {
	for i, lo := range Complexities {
		for _, hi := range Complexities[i+1:] {
			if got := CompareComplexity(lo, hi); got != -1 {
				t.Errorf("CompareComplexity(%s, %s) = %d, want -1", lo, hi, got)
			}
			if got := CompareComplexity(hi, lo); got != 1 {
				t.Errorf("CompareComplexity(%s, %s) = %d, want 1", hi, lo, got)
			}
		}
	}
}

func TestHigherComplexity(t *testing.T) {
	tests := []struct {
		a, b, want Complexity
	}{
		{ComplexitySuperEasy, ComplexityHard, ComplexityHard},
		{ComplexityHard, ComplexitySuperEasy, ComplexityHard},
		{ComplexityMedium, ComplexityMedium, ComplexityMedium},
		{ComplexitySuperHard, ComplexityEasy, ComplexitySuperHard},
	}

	for _, tt := range tests {
		if got := HigherComplexity(tt.a, tt.b); got != tt.want {
			t.Errorf("HigherComplexity(%s, %s) = %s, want %s", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestEnsureMinComplexity(t *testing.T) {
	// Result must rank at or above both inputs and be one of the two inputs.
	for _, level := range Complexities {
		for _, floor := range Complexities {
			got := EnsureMinComplexity(level, floor)
			if got != level && got != floor {
				t.Errorf("EnsureMinComplexity(%s, %s) = %s, not one of its inputs", level, floor, got)
			}
			if got.Ordinal() < level.Ordinal() || got.Ordinal() < floor.Ordinal() {
				t.Errorf("EnsureMinComplexity(%s, %s) = %s ranks below an input", level, floor, got)
			}
		}
	}
}

func TestParseComplexity(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"super_easy", true},
		{"easy", true},
		{"medium", true},
		{"hard", true},
		{"super_hard", true},
		{"SUPER_HARD", false},
		{"trivial", false},
		{"", false},
	}

	for _, tt := range tests {
		_, ok := ParseComplexity(tt.input)
		if ok != tt.valid {
			t.Errorf("ParseComplexity(%q) valid = %v, want %v", tt.input, ok, tt.valid)
		}
	}
}
