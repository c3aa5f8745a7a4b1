package types

// Complexity is the ordinal difficulty bucket assigned to an inbound message.
type Complexity string

const (
	ComplexitySuperEasy Complexity = "super_easy"
	ComplexityEasy      Complexity = "easy"
	ComplexityMedium    Complexity = "medium"
	ComplexityHard      Complexity = "hard"
	ComplexitySuperHard Complexity = "super_hard"
)

// Complexities lists all levels in ascending order.
var Complexities = []Complexity{
	ComplexitySuperEasy,
	ComplexityEasy,
	ComplexityMedium,
	ComplexityHard,
	ComplexitySuperHard,
}

// Ordinal returns a numeric rank for comparison. Higher values mean harder.
func (c Complexity) Ordinal() int {
	switch c {
	case ComplexitySuperEasy:
		return 0
	case ComplexityEasy:
		return 1
	case ComplexityMedium:
		return 2
	case ComplexityHard:
		return 3
	case ComplexitySuperHard:
		return 4
	default:
		return -1
	}
}

// CompareComplexity returns -1, 0 or 1 as a is below, equal to or above b.
func CompareComplexity(a, b Complexity) int {
	switch {
	case a.Ordinal() < b.Ordinal():
		return -1
	case a.Ordinal() > b.Ordinal():
		return 1
	default:
		return 0
	}
}

// HigherComplexity returns whichever of a and b ranks higher.
func HigherComplexity(a, b Complexity) Complexity {
	if a.Ordinal() >= b.Ordinal() {
		return a
	}
	return b
}

// EnsureMinComplexity raises level to floor if it ranks below it.
func EnsureMinComplexity(level, floor Complexity) Complexity {
	if level.Ordinal() < floor.Ordinal() {
		return floor
	}
	return level
}

func ParseComplexity(s string) (Complexity, bool) {
	switch Complexity(s) {
	case ComplexitySuperEasy, ComplexityEasy, ComplexityMedium, ComplexityHard, ComplexitySuperHard:
		return Complexity(s), true
	default:
		return "", false
	}
}
