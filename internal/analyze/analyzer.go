package analyze

import (
	"math"

	"github.com/covera-health/covera/internal/model"
)

// Analyzer runs the dataset-level analyses. Every analysis is a pure
// function of one snapshot, so results are stable for a given version and
// safe to compute concurrently.
type Analyzer struct {
	cfg    model.AnalyzeConfig
	verify model.VerifyConfig
}

// NewAnalyzer creates an analyzer with the given thresholds.
func NewAnalyzer(cfg model.AnalyzeConfig, verify model.VerifyConfig) *Analyzer {
	return &Analyzer{cfg: cfg, verify: verify}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64, mu float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		d := x - mu
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}

// pearson computes the sample correlation coefficient. It returns 0 when
// either series has no variance.
func pearson(xs, ys []float64) float64 {
	n := len(xs)
	if n < 2 || n != len(ys) {
		return 0
	}
	mx, my := mean(xs), mean(ys)
	var cov, vx, vy float64
	for i := 0; i < n; i++ {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0
	}
	return cov / math.Sqrt(vx*vy)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
