// Package score provides a table-driven weighted scorer and the consent
// banner confidence aggregator built on it.
package score

// Signal is a named, weighted scoring function over T.
type Signal[T any] struct {
	Name   string
	Weight float64
	Fn     func(T) float64
}

// Strategy sums weighted signals. With Clamp set the total is bounded to [0,1].
type Strategy[T any] struct {
	Signals []Signal[T]
	Clamp   bool
}

// Score evaluates every signal and returns the weighted sum.
func (s Strategy[T]) Score(v T) float64 {
	total, _ := s.Evaluate(v)
	return total
}

// Evaluate returns the weighted sum and each signal's unweighted value.
func (s Strategy[T]) Evaluate(v T) (float64, map[string]float64) {
	parts := make(map[string]float64, len(s.Signals))
	total := 0.0
	for _, sig := range s.Signals {
		val := sig.Fn(v)
		parts[sig.Name] = val
		total += sig.Weight * val
	}
	if s.Clamp {
		total = Clamp01(total)
	}
	return total, parts
}

// Clamp01 bounds x to [0,1].
func Clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}
