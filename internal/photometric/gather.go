package photometric

import (
	"context"
	"fmt"

	"github.com/golang/geo/r3"

	"github.com/banshee-data/closedform/internal/monitoring"
)

// TrainingBatch names a subset of views together with the light
// configuration each of them was captured under.
type TrainingBatch struct {
	Views  []int
	Lights []int
}

// LightSample is a LightModel's answer for N points × len(batch.Views)
// views, point-major.
type LightSample struct {
	Intensity []RGB
	Direction []r3.Vector
	Shadowed  []bool
}

// ObservationSample is an ObservationExtractor's answer for N points ×
// len(views) views, point-major.
type ObservationSample struct {
	Radiance []RGB
	Occluded []bool
}

// LightModel computes the light arriving at every point from every view of a
// batch. Directions point from the surface toward the light and are unit
// length. With shadowing disabled every Shadowed flag must be false.
type LightModel interface {
	LightIntensities(ctx context.Context, points []r3.Vector, batch TrainingBatch, shadowing bool) (*LightSample, error)
}

// ObservationExtractor samples the observed radiance of every point in the
// given views, box-filtered over radius pixels. Entries it cannot observe
// carry ObservationOutOfBounds.
type ObservationExtractor interface {
	ExtractObservations(ctx context.Context, views []int, radius int, occlusions bool) (*ObservationSample, error)
}

// Gather queries both collaborators for every training batch and
// concatenates the answers along the view axis, so RANSAC samples from all
// batches jointly.
func Gather(ctx context.Context, points []r3.Vector, batches []TrainingBatch, lights LightModel, extractor ObservationExtractor, cfg *Config) (*Observations, error) {
	parts := make([]*Observations, 0, len(batches))
	outOfBounds := 0
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		part, oob, err := gatherBatch(ctx, points, batch, lights, extractor, cfg)
		if err != nil {
			return nil, fmt.Errorf("batch %d: %w", i, err)
		}
		outOfBounds += oob
		parts = append(parts, part)
	}
	obs, err := Concat(parts...)
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		obs.Points = len(points)
	}
	if outOfBounds > 0 {
		monitoring.Logf("photometric: %d of %d observations out of bounds, treated as occluded", outOfBounds, obs.Points*obs.Views)
	}
	return obs, nil
}

func gatherBatch(ctx context.Context, points []r3.Vector, batch TrainingBatch, lights LightModel, extractor ObservationExtractor, cfg *Config) (*Observations, int, error) {
	occlusions := cfg.ShadowsOcclusions
	ls, err := lights.LightIntensities(ctx, points, batch, occlusions)
	if err != nil {
		return nil, 0, fmt.Errorf("light intensities: %w", err)
	}
	if ls == nil {
		return nil, 0, fmt.Errorf("%w: light model returned no sample", ErrInconsistentInput)
	}
	sample, err := extractor.ExtractObservations(ctx, batch.Views, cfg.SampleRadius, occlusions)
	if err != nil {
		return nil, 0, fmt.Errorf("extract observations: %w", err)
	}
	if sample == nil {
		return nil, 0, fmt.Errorf("%w: extractor returned no sample", ErrInconsistentInput)
	}

	obs := &Observations{
		Points:    len(points),
		Views:     len(batch.Views),
		Intensity: ls.Intensity,
		Direction: ls.Direction,
		Shadowed:  ls.Shadowed,
		Radiance:  sample.Radiance,
		Occluded:  make([]bool, len(sample.Occluded)),
	}
	copy(obs.Occluded, sample.Occluded)
	if err := obs.Check(); err != nil {
		return nil, 0, err
	}

	oob := 0
	for i, r := range obs.Radiance {
		if r[0] == ObservationOutOfBounds || r[1] == ObservationOutOfBounds || r[2] == ObservationOutOfBounds {
			if !obs.Occluded[i] {
				oob++
			}
			obs.Occluded[i] = true
		}
	}
	return obs, oob, nil
}
