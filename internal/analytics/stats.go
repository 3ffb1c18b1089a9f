package analytics

import "math"

// Mean returns the arithmetic mean, or nil for no values
func Mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	m := sum / float64(len(values))
	return &m
}

// PopulationStdDev divides by N. Fewer than two values yields 0.
func PopulationStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := *Mean(values)
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}

// Pearson returns the correlation coefficient of paired samples.
// nil when there are fewer than two pairs, the slices differ in length,
// or either series has no variance.
func Pearson(xs, ys []float64) *float64 {
	n := len(xs)
	if n != len(ys) || n < 2 {
		return nil
	}

	meanX, meanY := *Mean(xs), *Mean(ys)

	var num, denX, denY float64
	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		num += dx * dy
		denX += dx * dx
		denY += dy * dy
	}
	if denX <= 0 || denY <= 0 {
		return nil
	}

	r := num / math.Sqrt(denX*denY)
	// rounding can push |r| a hair past 1
	r = math.Max(-1, math.Min(1, r))
	return &r
}

// Round rounds half away from zero to the given number of decimals, so
// Round(2.5, 0) is 3 where banker's rounding would give 2
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
