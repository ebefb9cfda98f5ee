package photometric

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/golang/geo/r3"

	"github.com/banshee-data/closedform/internal/vecmath"
)

// Result is the robust Lambertian fit of N points over C views. Per-view
// slices are point-major like Observations.
type Result struct {
	Points int
	Views  int

	Normals   []r3.Vector // unit length
	Albedos   []RGB       // diffuse albedo per channel
	Inliers   []bool      // N×C winning RANSAC inliers
	Residuals []RGB       // N×C shading·coefficient − radiance, zero for non-inliers

	InlierCounts []int  // winning inlier count per point
	Degenerate   []bool // ≤2 valid views in the winning inlier set

	Iterations int
	SubsetSize int
	// History is the mean best inlier count after every iteration.
	History []float64
}

// Inlier reports whether (point, view) is in the point's winning inlier set.
func (r *Result) Inlier(point, view int) bool {
	return r.Inliers[point*r.Views+view]
}

// DegenerateCount returns the number of points fitted with the regularizer
// fallback.
func (r *Result) DegenerateCount() int {
	n := 0
	for _, d := range r.Degenerate {
		if d {
			n++
		}
	}
	return n
}

// grayscale holds the per-(point, view) grayscale light transport vector and
// observation, both zeroed where the view is not valid.
type grayscale struct {
	light []r3.Vector
	obs   []float64
	valid []bool
}

func toGrayscale(obs *Observations) *grayscale {
	n := obs.Points * obs.Views
	g := &grayscale{
		light: make([]r3.Vector, n),
		obs:   make([]float64, n),
		valid: make([]bool, n),
	}
	for i := 0; i < n; i++ {
		if obs.Shadowed[i] || obs.Occluded[i] {
			continue
		}
		g.valid[i] = true
		// mean over channels of intensity ⊗ direction
		g.light[i] = obs.Direction[i].Mul(obs.Intensity[i].Mean())
		g.obs[i] = obs.Radiance[i].Mean()
	}
	return g
}

// Solve fits a unit normal and an RGB albedo to every point.
//
// RANSAC draws subsets of min(C, MaxSubsetSize) views; each point solves its
// grayscale 3×3 system on the subset, scores the solution on all C views and
// keeps the first subset with the most inliers. The winning inlier set is
// refitted and normalized, then each colour channel's albedo is fitted as a
// single scalar against the shading n·d·I.
//
// Points with two or fewer valid views are regularized with Regularizer on
// the diagonal; they always yield finite values and never an error.
func Solve(obs *Observations, cfg *Config) (*Result, error) {
	if err := obs.Check(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid solver config: %w", err)
	}
	if obs.Views == 0 {
		return nil, fmt.Errorf("%w: no views to fit", ErrInconsistentInput)
	}

	N, C := obs.Points, obs.Views
	gray := toGrayscale(obs)
	k := cfg.SubsetSize(C)
	iterations := cfg.ExpectedIterations(C)
	workers := cfg.workers(N)

	res := &Result{
		Points:       N,
		Views:        C,
		Normals:      make([]r3.Vector, N),
		Albedos:      make([]RGB, N),
		Inliers:      make([]bool, N*C),
		Residuals:    make([]RGB, N*C),
		InlierCounts: make([]int, N),
		Degenerate:   make([]bool, N),
		Iterations:   iterations,
		SubsetSize:   k,
		History:      make([]float64, 0, iterations),
	}
	for n := range res.InlierCounts {
		res.InlierCounts[n] = -1
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	pool := make([]int, C)
	for i := range pool {
		pool[i] = i
	}
	perPoint := cfg.Sharing == PerPointSubset
	subsets := make([]int, k)
	if perPoint {
		subsets = make([]int, N*k)
	}

	for it := 0; it < iterations; it++ {
		if perPoint {
			for n := 0; n < N; n++ {
				drawSubset(rng, pool, subsets[n*k:(n+1)*k])
			}
		} else {
			drawSubset(rng, pool, subsets)
		}

		forEachChunk(workers, N, func(lo, hi int) {
			sys := newNormalSystem()
			row := make([]bool, C)
			for n := lo; n < hi; n++ {
				subset := subsets
				if perPoint {
					subset = subsets[n*k : (n+1)*k]
				}
				x := solveSubset(sys, gray, n, C, subset, cfg.Regularizer)
				count := scoreInliers(gray, n, C, x, cfg.InlierThreshold, row)
				if count > res.InlierCounts[n] {
					res.InlierCounts[n] = count
					copy(res.Inliers[n*C:(n+1)*C], row)
				}
			}
		})

		total := 0
		for _, c := range res.InlierCounts {
			total += c
		}
		mean := 0.0
		if N > 0 {
			mean = float64(total) / float64(N)
		}
		res.History = append(res.History, mean)
		if cfg.Progress != nil {
			cfg.Progress(IterationStats{Iteration: it + 1, Total: iterations, MeanInliers: mean, BestCounts: res.InlierCounts})
		}
	}

	forEachChunk(workers, N, func(lo, hi int) {
		sys := newNormalSystem()
		for n := lo; n < hi; n++ {
			refit(sys, obs, gray, res, n, cfg.Regularizer)
		}
	})
	return res, nil
}

// drawSubset fills dst with len(dst) distinct views drawn uniformly by a
// partial Fisher-Yates shuffle of pool. pool stays a permutation of the views.
func drawSubset(rng *rand.Rand, pool []int, dst []int) {
	for i := range dst {
		j := i + rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
		dst[i] = pool[i]
	}
}

func solveSubset(sys *normalSystem, gray *grayscale, n, C int, subset []int, reg float64) r3.Vector {
	sys.reset()
	valid := 0
	for _, c := range subset {
		i := n*C + c
		if gray.valid[i] {
			valid++
		}
		sys.add(gray.light[i], gray.obs[i])
	}
	return sys.solve(reg, valid <= 2)
}

// scoreInliers evaluates x on every view of point n and writes the inlier
// row. It returns the inlier count.
func scoreInliers(gray *grayscale, n, C int, x r3.Vector, threshold float64, row []bool) int {
	count := 0
	for c := 0; c < C; c++ {
		i := n*C + c
		r := gray.light[i].Dot(x) - gray.obs[i]
		row[c] = gray.valid[i] && math.Abs(r) < threshold
		if row[c] {
			count++
		}
	}
	return count
}

// refit solves point n on its winning inlier set and fits the per-channel
// albedo.
func refit(sys *normalSystem, obs *Observations, gray *grayscale, res *Result, n int, reg float64) {
	C := obs.Views
	inliers := res.Inliers[n*C : (n+1)*C]

	sys.reset()
	used := 0
	for c, in := range inliers {
		if !in {
			continue
		}
		i := n*C + c
		sys.add(gray.light[i], gray.obs[i])
		used++
	}
	degenerate := used <= 2
	res.Degenerate[n] = degenerate

	normal := vecmath.Normalize(sys.solve(reg, degenerate))
	if vecmath.IsZero(normal) {
		normal = fallbackNormal(obs, n)
	}
	res.Normals[n] = normal

	for ch := 0; ch < 3; ch++ {
		var so, ss float64
		for c, in := range inliers {
			if !in {
				continue
			}
			i := n*C + c
			s := normal.Dot(obs.Direction[i]) * obs.Intensity[i][ch]
			so += s * obs.Radiance[i][ch]
			ss += s * s
		}
		if degenerate || ss == 0 {
			// 1×1 system: the regularizer is 1
			ss++
		}
		a := so / ss
		res.Albedos[n][ch] = math.Pi * a
		for c, in := range inliers {
			if !in {
				continue
			}
			i := n*C + c
			s := normal.Dot(obs.Direction[i]) * obs.Intensity[i][ch]
			res.Residuals[i][ch] = s*a - obs.Radiance[i][ch]
		}
	}
}

// fallbackNormal is used when the fit carries no directional information:
// the normalized mean light direction over valid views, else over all views,
// else +Z.
func fallbackNormal(obs *Observations, n int) r3.Vector {
	C := obs.Views
	var valid, all r3.Vector
	for c := 0; c < C; c++ {
		d := obs.Direction[n*C+c]
		all = all.Add(d)
		if obs.Valid(n, c) {
			valid = valid.Add(d)
		}
	}
	if v := vecmath.Normalize(valid); !vecmath.IsZero(v) {
		return v
	}
	if v := vecmath.Normalize(all); !vecmath.IsZero(v) {
		return v
	}
	return r3.Vector{Z: 1}
}
