// Package config provides configuration loading for the meadow simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/gekko3d/meadow/grassrt/rt/core"
	"github.com/gekko3d/meadow/grassrt/rt/field"
)

//go:embed defaults.yaml
var defaultsYAML []byte

var ErrInvalid = errors.New("config: invalid")

const (
	BackendCPU = "cpu"
	BackendGPU = "gpu"
)

// Config holds all simulation configuration parameters.
type Config struct {
	Field     FieldConfig     `yaml:"field"`
	Forces    ForcesConfig    `yaml:"forces"`
	Culling   CullingConfig   `yaml:"culling"`
	Camera    CameraConfig    `yaml:"camera"`
	Kernel    KernelConfig    `yaml:"kernel"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Preview   PreviewConfig   `yaml:"preview"`
	Run       RunConfig       `yaml:"run"`
}

// FieldConfig describes the blade population.
type FieldConfig struct {
	Seed         int64      `yaml:"seed"`
	Center       [2]float32 `yaml:"center"` // x, z
	Size         float32    `yaml:"size"`
	Spacing      float32    `yaml:"spacing"`
	Jitter       float32    `yaml:"jitter"`
	Ground       float32    `yaml:"ground"`
	MinHeight    float32    `yaml:"min_height"`
	MaxHeight    float32    `yaml:"max_height"`
	MinWidth     float32    `yaml:"min_width"`
	MaxWidth     float32    `yaml:"max_width"`
	MinStiffness float32    `yaml:"min_stiffness"`
	MaxStiffness float32    `yaml:"max_stiffness"`
	NoiseScale   float32    `yaml:"noise_scale"`
}

// ForcesConfig holds the environmental force constants.
type ForcesConfig struct {
	Mass              float32    `yaml:"mass"`
	GravityDir        [3]float32 `yaml:"gravity_dir"`
	GravityAccel      float32    `yaml:"gravity_accel"`
	FrontGravityRatio float32    `yaml:"front_gravity_ratio"`
	WindScrollSpeed   [2]float32 `yaml:"wind_scroll_speed"`
	WindStrength      [2]float32 `yaml:"wind_strength"`
	WindNoiseScale    float32    `yaml:"wind_noise_scale"`
	WindAmplitude     float32    `yaml:"wind_amplitude"`
}

type CullingConfig struct {
	Orientation          bool    `yaml:"orientation"`
	Frustum              bool    `yaml:"frustum"`
	Distance             bool    `yaml:"distance"`
	CullAllPostPhysics   bool    `yaml:"cull_all_post_physics"`
	OrientationThreshold float32 `yaml:"orientation_threshold"`
	MaxDistance          float32 `yaml:"max_distance"`
	FrustumTolerance     float32 `yaml:"frustum_tolerance"`
}

// CameraConfig places the viewer. OrbitSpeed rotates the eye around the
// target in radians per second; zero keeps the camera still.
type CameraConfig struct {
	Eye        [3]float32 `yaml:"eye"`
	Target     [3]float32 `yaml:"target"`
	FovDeg     float32    `yaml:"fov_deg"`
	Aspect     float32    `yaml:"aspect"`
	Near       float32    `yaml:"near"`
	Far        float32    `yaml:"far"`
	OrbitSpeed float32    `yaml:"orbit_speed"`
}

type KernelConfig struct {
	Backend         string `yaml:"backend"` // cpu or gpu
	WorkgroupSize   int    `yaml:"workgroup_size"`
	Workers         int    `yaml:"workers"` // 0 picks one per spare core
	DebugAssertions bool   `yaml:"debug_assertions"`
}

// TelemetryConfig controls CSV output. An empty Dir disables it.
type TelemetryConfig struct {
	Dir   string `yaml:"dir"`
	Every int    `yaml:"every"` // write one row every N steps
}

// PreviewConfig controls the top-down PNG. An empty Path disables it.
type PreviewConfig struct {
	Path   string  `yaml:"path"`
	Size   int     `yaml:"size"`   // image side in pixels
	Extent float32 `yaml:"extent"` // world units covered by the image side
}

type RunConfig struct {
	Frames    int     `yaml:"frames"`     // 0 runs until stopped
	FixedStep float64 `yaml:"fixed_step"` // seconds; 0 uses the wall clock
	Debug     bool    `yaml:"debug"`
	JSONLogs  bool    `yaml:"json_logs"`
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values the simulation cannot run with.
func (c *Config) Validate() error {
	if err := c.FieldParams().Validate(); err != nil {
		return fmt.Errorf("%w: field: %w", ErrInvalid, err)
	}
	switch {
	case c.Kernel.Backend != BackendCPU && c.Kernel.Backend != BackendGPU:
		return fmt.Errorf("%w: kernel.backend %q must be %q or %q", ErrInvalid, c.Kernel.Backend, BackendCPU, BackendGPU)
	case c.Kernel.WorkgroupSize <= 0:
		return fmt.Errorf("%w: kernel.workgroup_size %d must be positive", ErrInvalid, c.Kernel.WorkgroupSize)
	case c.Kernel.Workers < 0:
		return fmt.Errorf("%w: kernel.workers %d must not be negative", ErrInvalid, c.Kernel.Workers)
	case c.Camera.Near <= 0 || c.Camera.Near >= c.Camera.Far:
		return fmt.Errorf("%w: camera near %v / far %v", ErrInvalid, c.Camera.Near, c.Camera.Far)
	case c.Camera.FovDeg <= 0 || c.Camera.FovDeg >= 180:
		return fmt.Errorf("%w: camera.fov_deg %v", ErrInvalid, c.Camera.FovDeg)
	case c.Camera.Aspect <= 0:
		return fmt.Errorf("%w: camera.aspect %v must be positive", ErrInvalid, c.Camera.Aspect)
	case mgl32.Vec3(c.Forces.GravityDir).Len() == 0:
		return fmt.Errorf("%w: forces.gravity_dir must not be zero", ErrInvalid)
	case c.Culling.MaxDistance <= 0:
		return fmt.Errorf("%w: culling.max_distance %v must be positive", ErrInvalid, c.Culling.MaxDistance)
	case c.Culling.OrientationThreshold <= 0 || c.Culling.OrientationThreshold >= 1:
		return fmt.Errorf("%w: culling.orientation_threshold %v must be within (0, 1)", ErrInvalid, c.Culling.OrientationThreshold)
	case c.Culling.FrustumTolerance < 0:
		return fmt.Errorf("%w: culling.frustum_tolerance %v must not be negative", ErrInvalid, c.Culling.FrustumTolerance)
	case c.Forces.Mass < 0:
		return fmt.Errorf("%w: forces.mass %v must not be negative", ErrInvalid, c.Forces.Mass)
	case c.Run.Frames < 0:
		return fmt.Errorf("%w: run.frames %d must not be negative", ErrInvalid, c.Run.Frames)
	case c.Run.FixedStep < 0:
		return fmt.Errorf("%w: run.fixed_step %v must not be negative", ErrInvalid, c.Run.FixedStep)
	case c.Telemetry.Every < 0:
		return fmt.Errorf("%w: telemetry.every %d must not be negative", ErrInvalid, c.Telemetry.Every)
	case c.Preview.Path != "" && (c.Preview.Size <= 0 || c.Preview.Extent <= 0):
		return fmt.Errorf("%w: preview size %d / extent %v", ErrInvalid, c.Preview.Size, c.Preview.Extent)
	}
	return nil
}

func (c *Config) FieldParams() field.Params {
	f := c.Field
	return field.Params{
		Center:       mgl32.Vec2(f.Center),
		Size:         f.Size,
		Spacing:      f.Spacing,
		Jitter:       f.Jitter,
		Ground:       f.Ground,
		MinHeight:    f.MinHeight,
		MaxHeight:    f.MaxHeight,
		MinWidth:     f.MinWidth,
		MaxWidth:     f.MaxWidth,
		MinStiffness: f.MinStiffness,
		MaxStiffness: f.MaxStiffness,
		NoiseScale:   f.NoiseScale,
	}
}

func (c *Config) ForceParams() core.ForceParams {
	f := c.Forces
	return core.ForceParams{
		Mass:              f.Mass,
		GravityDir:        mgl32.Vec3(f.GravityDir).Normalize(),
		GravityAccel:      f.GravityAccel,
		FrontGravityRatio: f.FrontGravityRatio,
		WindScrollSpeed:   mgl32.Vec2(f.WindScrollSpeed),
		WindStrength:      mgl32.Vec2(f.WindStrength),
		WindNoiseScale:    f.WindNoiseScale,
		WindAmplitude:     f.WindAmplitude,
	}
}

func (c *Config) CullConfig() core.CullConfig {
	cc := c.Culling
	return core.CullConfig{
		Orientation:          cc.Orientation,
		Frustum:              cc.Frustum,
		Distance:             cc.Distance,
		CullAllPostPhysics:   cc.CullAllPostPhysics,
		OrientationThreshold: cc.OrientationThreshold,
		MaxDistance:          cc.MaxDistance,
		FrustumTolerance:     cc.FrustumTolerance,
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
