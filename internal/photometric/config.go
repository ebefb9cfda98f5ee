package photometric

import (
	"fmt"
	"math"
	"runtime"

	"github.com/banshee-data/closedform/internal/config"
)

// SubsetSharing selects how RANSAC subsets are drawn.
type SubsetSharing int

const (
	// SharedSubset draws one view subset per iteration for all points. This
	// trades per-point statistical optimality for throughput.
	SharedSubset SubsetSharing = iota
	// PerPointSubset draws an independent subset for every point.
	PerPointSubset
)

func (s SubsetSharing) String() string {
	switch s {
	case SharedSubset:
		return config.SharingShared
	case PerPointSubset:
		return config.SharingPerPoint
	default:
		return fmt.Sprintf("SubsetSharing(%d)", int(s))
	}
}

// IterationStats is passed to Config.Progress after every RANSAC iteration.
// BestCounts is the live per-point best inlier count and must not be
// retained or modified.
type IterationStats struct {
	Iteration   int
	Total       int
	MeanInliers float64
	BestCounts  []int
}

// Config holds the solver parameters.
type Config struct {
	SampleRadius      int           // Observation box-filter radius (default: 7)
	ShadowsOcclusions bool          // Model shadows and occlusions (default: true)
	MaxSubsetSize     int           // RANSAC subset size cap; actual size is min(C, this) (default: 6)
	InlierThreshold   float64       // |grayscale residual| below this is an inlier (default: 1e4)
	OutlierFraction   float64       // Assumed outlier fraction (default: 0.20)
	TargetSuccess     float64       // Targeted RANSAC success probability (default: 1-1e-4)
	Regularizer       float64       // Diagonal added to degenerate 3×3 systems (default: 1e8)
	Seed              int64         // Subset sampling seed (default: 1)
	Workers           int           // Goroutines for per-point work; 0 means GOMAXPROCS (default: 0)
	Sharing           SubsetSharing // Subset sharing across points (default: SharedSubset)

	// Progress, if set, is called on the solving goroutine after every
	// RANSAC iteration.
	Progress func(IterationStats)
}

// DefaultConfig returns the solver defaults.
func DefaultConfig() *Config {
	return ConfigFromSettings(config.EmptySettings())
}

// ConfigFromSettings builds a Config from loaded Settings.
func ConfigFromSettings(s *config.Settings) *Config {
	sharing := SharedSubset
	if s.GetSubsetSharing() == config.SharingPerPoint {
		sharing = PerPointSubset
	}
	return &Config{
		SampleRadius:      s.GetSampleRadius(),
		ShadowsOcclusions: s.GetShadowsOcclusions(),
		MaxSubsetSize:     s.GetMaxSubsetSize(),
		InlierThreshold:   s.GetInlierThreshold(),
		OutlierFraction:   s.GetOutlierFraction(),
		TargetSuccess:     s.GetTargetSuccess(),
		Regularizer:       s.GetRegularizer(),
		Seed:              s.GetSeed(),
		Workers:           s.GetWorkers(),
		Sharing:           sharing,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.SampleRadius < 0 {
		return fmt.Errorf("SampleRadius must be non-negative, got %d", c.SampleRadius)
	}
	if c.MaxSubsetSize < 1 {
		return fmt.Errorf("MaxSubsetSize must be positive, got %d", c.MaxSubsetSize)
	}
	if !(c.InlierThreshold > 0) {
		return fmt.Errorf("InlierThreshold must be positive, got %g", c.InlierThreshold)
	}
	if c.OutlierFraction < 0 || c.OutlierFraction >= 1 {
		return fmt.Errorf("OutlierFraction must be in [0, 1), got %g", c.OutlierFraction)
	}
	if c.TargetSuccess <= 0 || c.TargetSuccess >= 1 {
		return fmt.Errorf("TargetSuccess must be in (0, 1), got %g", c.TargetSuccess)
	}
	if !(c.Regularizer > 0) {
		return fmt.Errorf("Regularizer must be positive, got %g", c.Regularizer)
	}
	if c.Workers < 0 {
		return fmt.Errorf("Workers must be non-negative, got %d", c.Workers)
	}
	if c.Sharing != SharedSubset && c.Sharing != PerPointSubset {
		return fmt.Errorf("unknown subset sharing %v", c.Sharing)
	}
	return nil
}

func (c *Config) workers(points int) int {
	w := c.Workers
	if w == 0 {
		w = runtime.GOMAXPROCS(0)
	}
	if w > points {
		w = points
	}
	if w < 1 {
		w = 1
	}
	return w
}

// SubsetSize returns min(views, MaxSubsetSize).
func (c *Config) SubsetSize(views int) int {
	if views < c.MaxSubsetSize {
		return views
	}
	return c.MaxSubsetSize
}

// ExpectedIterations returns the RANSAC iteration count for the given number
// of views: floor(10·ln(1−s)/ln(1−(1−f)^k)), and exactly 1 when the subset
// already covers every view.
func (c *Config) ExpectedIterations(views int) int {
	k := c.SubsetSize(views)
	if k >= views {
		return 1
	}
	clean := math.Pow(1-c.OutlierFraction, float64(k))
	if clean >= 1 {
		// no outliers assumed: one draw always succeeds
		return 1
	}
	n := math.Floor(10 * math.Log(1-c.TargetSuccess) / math.Log(1-clean))
	if n < 1 || math.IsNaN(n) {
		return 1
	}
	return int(n)
}
