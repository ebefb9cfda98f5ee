package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Subset sharing modes accepted by SubsetSharing.
const (
	SharingShared   = "shared"
	SharingPerPoint = "per_point"
)

// Location parametrization kinds accepted by Locations.
const (
	LocationsDepthMap = "depth map"
	LocationsPlane    = "plane"
)

// Settings is the root configuration for a closed-form initialization run.
// Every field is optional; the Get* accessors supply the defaults, so partial
// files are safe. The same schema is read from JSON and YAML.
type Settings struct {
	// Photometric solver
	SampleRadius      *int     `json:"sample_radius,omitempty" yaml:"sample_radius,omitempty"`
	ShadowsOcclusions *bool    `json:"shadows_occlusions,omitempty" yaml:"shadows_occlusions,omitempty"`
	MaxSubsetSize     *int     `json:"max_subset_size,omitempty" yaml:"max_subset_size,omitempty"`
	InlierThreshold   *float64 `json:"inlier_threshold,omitempty" yaml:"inlier_threshold,omitempty"`
	OutlierFraction   *float64 `json:"outlier_fraction,omitempty" yaml:"outlier_fraction,omitempty"`
	TargetSuccess     *float64 `json:"target_success,omitempty" yaml:"target_success,omitempty"`
	Regularizer       *float64 `json:"regularizer,omitempty" yaml:"regularizer,omitempty"`
	Seed              *int64   `json:"seed,omitempty" yaml:"seed,omitempty"`
	Workers           *int     `json:"workers,omitempty" yaml:"workers,omitempty"`
	SubsetSharing     *string  `json:"subset_sharing,omitempty" yaml:"subset_sharing,omitempty"` // "shared" or "per_point"

	// Geometry
	Locations *string `json:"locations,omitempty" yaml:"locations,omitempty"` // "depth map" or "plane"

	// Synthetic scene
	SceneHeight     *int      `json:"scene_height,omitempty" yaml:"scene_height,omitempty"`
	SceneWidth      *int      `json:"scene_width,omitempty" yaml:"scene_width,omitempty"`
	SceneViews      *int      `json:"scene_views,omitempty" yaml:"scene_views,omitempty"`
	SceneDepth      *float64  `json:"scene_depth,omitempty" yaml:"scene_depth,omitempty"`
	SceneTiltDeg    *float64  `json:"scene_tilt_deg,omitempty" yaml:"scene_tilt_deg,omitempty"`
	SceneAlbedo     []float64 `json:"scene_albedo,omitempty" yaml:"scene_albedo,omitempty"`
	CorruptFraction *float64  `json:"corrupt_fraction,omitempty" yaml:"corrupt_fraction,omitempty"`
	CorruptValue    *float64  `json:"corrupt_value,omitempty" yaml:"corrupt_value,omitempty"`

	// Output
	DatabasePath *string `json:"database_path,omitempty" yaml:"database_path,omitempty"`
	PlotDir      *string `json:"plot_dir,omitempty" yaml:"plot_dir,omitempty"`
	PLYPath      *string `json:"ply_path,omitempty" yaml:"ply_path,omitempty"`
	LogFile      *string `json:"log_file,omitempty" yaml:"log_file,omitempty"`
	LogLevel     *string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
}

// maxFileSize bounds configuration files (1MB).
const maxFileSize = 1 * 1024 * 1024

// EmptySettings returns Settings with every field unset, i.e. all defaults.
func EmptySettings() *Settings {
	return &Settings{}
}

// Load reads Settings from a .json, .yaml or .yml file and validates them.
func Load(path string) (*Settings, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptySettings()
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", strings.TrimPrefix(ext, "."), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that are set.
func (c *Settings) Validate() error {
	if c.SampleRadius != nil && *c.SampleRadius < 0 {
		return fmt.Errorf("sample_radius must be non-negative, got %d", *c.SampleRadius)
	}
	if c.MaxSubsetSize != nil && *c.MaxSubsetSize < 3 {
		return fmt.Errorf("max_subset_size must be at least 3, got %d", *c.MaxSubsetSize)
	}
	if c.InlierThreshold != nil && *c.InlierThreshold <= 0 {
		return fmt.Errorf("inlier_threshold must be positive, got %g", *c.InlierThreshold)
	}
	if c.OutlierFraction != nil && (*c.OutlierFraction < 0 || *c.OutlierFraction >= 1) {
		return fmt.Errorf("outlier_fraction must be in [0, 1), got %g", *c.OutlierFraction)
	}
	if c.TargetSuccess != nil && (*c.TargetSuccess <= 0 || *c.TargetSuccess >= 1) {
		return fmt.Errorf("target_success must be in (0, 1), got %g", *c.TargetSuccess)
	}
	if c.Regularizer != nil && *c.Regularizer <= 0 {
		return fmt.Errorf("regularizer must be positive, got %g", *c.Regularizer)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.SubsetSharing != nil {
		switch *c.SubsetSharing {
		case SharingShared, SharingPerPoint:
		default:
			return fmt.Errorf("subset_sharing must be %q or %q, got %q", SharingShared, SharingPerPoint, *c.SubsetSharing)
		}
	}
	if c.Locations != nil {
		switch *c.Locations {
		case LocationsDepthMap, LocationsPlane:
		default:
			return fmt.Errorf("locations must be %q or %q, got %q", LocationsDepthMap, LocationsPlane, *c.Locations)
		}
	}
	if c.SceneHeight != nil && *c.SceneHeight < 3 {
		return fmt.Errorf("scene_height must be at least 3, got %d", *c.SceneHeight)
	}
	if c.SceneWidth != nil && *c.SceneWidth < 3 {
		return fmt.Errorf("scene_width must be at least 3, got %d", *c.SceneWidth)
	}
	if c.SceneViews != nil && *c.SceneViews < 1 {
		return fmt.Errorf("scene_views must be positive, got %d", *c.SceneViews)
	}
	if c.SceneDepth != nil && *c.SceneDepth <= 0 {
		return fmt.Errorf("scene_depth must be positive, got %g", *c.SceneDepth)
	}
	if c.SceneTiltDeg != nil && (*c.SceneTiltDeg <= -80 || *c.SceneTiltDeg >= 80) {
		return fmt.Errorf("scene_tilt_deg must be in (-80, 80), got %g", *c.SceneTiltDeg)
	}
	if c.SceneAlbedo != nil && len(c.SceneAlbedo) != 3 {
		return fmt.Errorf("scene_albedo must have 3 channels, got %d", len(c.SceneAlbedo))
	}
	if c.CorruptFraction != nil && (*c.CorruptFraction < 0 || *c.CorruptFraction > 1) {
		return fmt.Errorf("corrupt_fraction must be in [0, 1], got %g", *c.CorruptFraction)
	}
	if c.LogLevel != nil {
		switch *c.LogLevel {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", *c.LogLevel)
		}
	}
	return nil
}

// GetSampleRadius returns the observation box-filter radius in pixels.
func (c *Settings) GetSampleRadius() int {
	if c.SampleRadius == nil {
		return 7
	}
	return *c.SampleRadius
}

// GetShadowsOcclusions reports whether shadows and occlusions are modelled.
func (c *Settings) GetShadowsOcclusions() bool {
	if c.ShadowsOcclusions == nil {
		return true
	}
	return *c.ShadowsOcclusions
}

// GetMaxSubsetSize returns the RANSAC subset size cap.
func (c *Settings) GetMaxSubsetSize() int {
	if c.MaxSubsetSize == nil {
		return 6
	}
	return *c.MaxSubsetSize
}

// GetInlierThreshold returns the absolute grayscale residual below which an
// observation is an inlier.
func (c *Settings) GetInlierThreshold() float64 {
	if c.InlierThreshold == nil {
		return 1e4
	}
	return *c.InlierThreshold
}

// GetOutlierFraction returns the assumed outlier fraction.
func (c *Settings) GetOutlierFraction() float64 {
	if c.OutlierFraction == nil {
		return 0.20
	}
	return *c.OutlierFraction
}

// GetTargetSuccess returns the targeted RANSAC success probability.
func (c *Settings) GetTargetSuccess() float64 {
	if c.TargetSuccess == nil {
		return 1 - 1e-4
	}
	return *c.TargetSuccess
}

// GetRegularizer returns the diagonal added to degenerate 3×3 systems.
func (c *Settings) GetRegularizer() float64 {
	if c.Regularizer == nil {
		return 1e8
	}
	return *c.Regularizer
}

// GetSeed returns the RANSAC random seed.
func (c *Settings) GetSeed() int64 {
	if c.Seed == nil {
		return 1
	}
	return *c.Seed
}

// GetWorkers returns the worker count; 0 means GOMAXPROCS.
func (c *Settings) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetSubsetSharing returns the subset sharing mode.
func (c *Settings) GetSubsetSharing() string {
	if c.SubsetSharing == nil {
		return SharingShared
	}
	return *c.SubsetSharing
}

// GetLocations returns the location parametrization kind.
func (c *Settings) GetLocations() string {
	if c.Locations == nil {
		return LocationsDepthMap
	}
	return *c.Locations
}

// GetSceneHeight returns the synthetic image height in pixels.
func (c *Settings) GetSceneHeight() int {
	if c.SceneHeight == nil {
		return 26
	}
	return *c.SceneHeight
}

// GetSceneWidth returns the synthetic image width in pixels.
func (c *Settings) GetSceneWidth() int {
	if c.SceneWidth == nil {
		return 41
	}
	return *c.SceneWidth
}

// GetSceneViews returns the number of synthetic light/view conditions.
func (c *Settings) GetSceneViews() int {
	if c.SceneViews == nil {
		return 40
	}
	return *c.SceneViews
}

// GetSceneDepth returns the distance of the synthetic plane from the camera.
func (c *Settings) GetSceneDepth() float64 {
	if c.SceneDepth == nil {
		return 2.0
	}
	return *c.SceneDepth
}

// GetSceneTiltDeg returns the synthetic plane tilt about the camera y axis.
func (c *Settings) GetSceneTiltDeg() float64 {
	if c.SceneTiltDeg == nil {
		return 20
	}
	return *c.SceneTiltDeg
}

// GetSceneAlbedo returns the synthetic diffuse albedo per channel.
func (c *Settings) GetSceneAlbedo() [3]float64 {
	if len(c.SceneAlbedo) != 3 {
		return [3]float64{0.6, 0.45, 0.3}
	}
	return [3]float64{c.SceneAlbedo[0], c.SceneAlbedo[1], c.SceneAlbedo[2]}
}

// GetCorruptFraction returns the fraction of observations overwritten with
// outlier radiance.
func (c *Settings) GetCorruptFraction() float64 {
	if c.CorruptFraction == nil {
		return 0.15
	}
	return *c.CorruptFraction
}

// GetCorruptValue returns the radiance written into corrupted observations.
func (c *Settings) GetCorruptValue() float64 {
	if c.CorruptValue == nil {
		return 1e9
	}
	return *c.CorruptValue
}

// GetDatabasePath returns the SQLite path; empty disables persistence.
func (c *Settings) GetDatabasePath() string {
	if c.DatabasePath == nil {
		return ""
	}
	return *c.DatabasePath
}

// GetPlotDir returns the diagnostics output directory; empty disables plots.
func (c *Settings) GetPlotDir() string {
	if c.PlotDir == nil {
		return ""
	}
	return *c.PlotDir
}

// GetPLYPath returns the point cloud output path; empty disables the export.
func (c *Settings) GetPLYPath() string {
	if c.PLYPath == nil {
		return ""
	}
	return *c.PLYPath
}

// GetLogFile returns the rotating log file path; empty logs to stderr only.
func (c *Settings) GetLogFile() string {
	if c.LogFile == nil {
		return ""
	}
	return *c.LogFile
}

// GetLogLevel returns the minimum log level.
func (c *Settings) GetLogLevel() string {
	if c.LogLevel == nil {
		return "info"
	}
	return *c.LogLevel
}
