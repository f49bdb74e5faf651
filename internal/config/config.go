package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Versifine/platformer/internal/camera"
	"github.com/Versifine/platformer/internal/locomotion"
	"github.com/Versifine/platformer/internal/physics"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Logging    LoggingConfig     `yaml:"logging"`
	Simulation SimulationConfig  `yaml:"simulation"`
	Movement   locomotion.Config `yaml:"movement"`
	Physics    PhysicsConfig     `yaml:"physics"`
	Camera     camera.Config     `yaml:"camera"`
	Level      LevelConfig       `yaml:"level"`
	Audio      AudioConfig       `yaml:"audio"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type SimulationConfig struct {
	FixedTimestep float64 `yaml:"fixed_timestep"`
	FrameRate     float64 `yaml:"frame_rate"`
	MaxSubsteps   int     `yaml:"max_substeps"`
}

type PhysicsConfig struct {
	Gravity      physics.Vec3 `yaml:"gravity"`
	Mass         float64      `yaml:"mass"`
	Drag         float64      `yaml:"drag"`
	HalfExtents  physics.Vec3 `yaml:"half_extents"`
	GroundLayers []string     `yaml:"ground_layers"`
	SolidLayers  []string     `yaml:"solid_layers"`
}

type LevelConfig struct {
	Path string `yaml:"path"`
	// KillPlane is the height below which the player respawns.
	KillPlane float64 `yaml:"kill_plane"`
}

type AudioConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Volume     float64 `yaml:"volume"`
	SampleRate int     `yaml:"sample_rate"`
}

func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Simulation: SimulationConfig{
			FixedTimestep: 0.02,
			FrameRate:     60,
			MaxSubsteps:   8,
		},
		Movement: locomotion.DefaultConfig(),
		Physics: PhysicsConfig{
			Gravity:      physics.Vec3{Y: physics.DefaultGravity},
			Mass:         physics.DefaultBodyMass,
			HalfExtents:  physics.Vec3{X: physics.DefaultBodyHalfWidth, Y: physics.DefaultBodyHalfHeight, Z: physics.DefaultBodyHalfDepth},
			GroundLayers: []string{"ground"},
			SolidLayers:  []string{"ground", "wall"},
		},
		Camera: camera.DefaultConfig(),
		Level: LevelConfig{
			Path:      "level.yaml",
			KillPlane: -20,
		},
		Audio: AudioConfig{
			Enabled:    true,
			Volume:     0.5,
			SampleRate: 44100,
		},
	}
}

// Load reads a yaml config on top of Default and validates it. A relative
// level path is resolved against the config file's directory.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Level.Path != "" && !filepath.IsAbs(cfg.Level.Path) {
		cfg.Level.Path = filepath.Join(filepath.Dir(path), cfg.Level.Path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Simulation.FixedTimestep <= 0 {
		errs = append(errs, fmt.Errorf("simulation.fixed_timestep must be > 0, got %g", c.Simulation.FixedTimestep))
	}
	if c.Simulation.FrameRate <= 0 {
		errs = append(errs, fmt.Errorf("simulation.frame_rate must be > 0, got %g", c.Simulation.FrameRate))
	}
	if c.Simulation.MaxSubsteps < 1 {
		errs = append(errs, fmt.Errorf("simulation.max_substeps must be >= 1, got %d", c.Simulation.MaxSubsteps))
	}
	if c.Physics.Mass <= 0 {
		errs = append(errs, fmt.Errorf("physics.mass must be > 0, got %g", c.Physics.Mass))
	}
	if c.Physics.Drag < 0 {
		errs = append(errs, fmt.Errorf("physics.drag must be >= 0, got %g", c.Physics.Drag))
	}
	if c.Physics.HalfExtents.X <= 0 || c.Physics.HalfExtents.Y <= 0 || c.Physics.HalfExtents.Z <= 0 {
		errs = append(errs, fmt.Errorf("physics.half_extents must be positive, got %+v", c.Physics.HalfExtents))
	}
	for _, name := range append(append([]string{}, c.Physics.GroundLayers...), c.Physics.SolidLayers...) {
		if _, ok := physics.ParseLayer(name); !ok {
			errs = append(errs, fmt.Errorf("unknown physics layer %q", name))
		}
	}
	if c.Camera.MinTilt > c.Camera.MaxTilt {
		errs = append(errs, fmt.Errorf("camera.min_tilt (%g) > camera.max_tilt (%g)", c.Camera.MinTilt, c.Camera.MaxTilt))
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		errs = append(errs, fmt.Errorf("audio.volume must be in [0,1], got %g", c.Audio.Volume))
	}
	if c.Level.Path == "" {
		errs = append(errs, errors.New("level.path is required"))
	}
	if err := c.Movement.Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// GroundMask and SolidMask turn the configured layer names into masks.
// Unknown names are skipped; Validate reports them.
func (p PhysicsConfig) GroundMask() physics.LayerMask {
	return maskOf(p.GroundLayers)
}

func (p PhysicsConfig) SolidMask() physics.LayerMask {
	return maskOf(p.SolidLayers)
}

func maskOf(names []string) physics.LayerMask {
	var layers []physics.Layer
	for _, name := range names {
		if l, ok := physics.ParseLayer(name); ok {
			layers = append(layers, l)
		}
	}
	return physics.MaskOf(layers...)
}
