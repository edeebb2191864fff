// Package config holds engine tuning loaded from yaml. Defaults are embedded
// and a file given with -config or DANMAKU_CONFIG is laid over them.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/milk9111/danmaku/ecs/component"
)

//go:embed default.yaml
var defaultYAML []byte

var ErrInvalid = errors.New("config: invalid value")

type Config struct {
	TickRate  int             `yaml:"tick_rate"`
	Strict    bool            `yaml:"strict"`
	Playfield PlayfieldConfig `yaml:"playfield"`
	Capacity  Capacities      `yaml:"capacity"`
	Collision CollisionConfig `yaml:"collision"`
	Script    ScriptConfig    `yaml:"script"`
	Player    PlayerConfig    `yaml:"player"`
}

type PlayfieldConfig struct {
	Width      float64 `yaml:"width"`
	Height     float64 `yaml:"height"`
	CullMargin float64 `yaml:"cull_margin"`
}

// Capacities is the fixed number of pool slots per category.
type Capacities struct {
	Player       int `yaml:"player"`
	Enemy        int `yaml:"enemy"`
	PlayerBullet int `yaml:"player_bullet"`
	EnemyBullet  int `yaml:"enemy_bullet"`
	Effect       int `yaml:"effect"`
	PowerUp      int `yaml:"power_up"`
}

type CollisionConfig struct {
	CellSize            float64 `yaml:"cell_size"`
	BroadphaseThreshold int     `yaml:"broadphase_threshold"`
}

type ScriptConfig struct {
	MaxStepsPerFrame int `yaml:"max_steps_per_frame"`
}

// PlayerConfig is where the player enters the playfield.
type PlayerConfig struct {
	StartX float64 `yaml:"start_x"`
	StartY float64 `yaml:"start_y"`
}

// For returns the capacity of cat.
func (c Capacities) For(cat component.Category) int {
	switch cat {
	case component.CategoryPlayer:
		return c.Player
	case component.CategoryEnemy:
		return c.Enemy
	case component.CategoryPlayerBullet:
		return c.PlayerBullet
	case component.CategoryEnemyBullet:
		return c.EnemyBullet
	case component.CategoryEffect:
		return c.Effect
	case component.CategoryPowerUp:
		return c.PowerUp
	}
	return 0
}

// Total is the sum of all category capacities.
func (c Capacities) Total() int {
	n := 0
	for cat := 0; cat < component.CategoryCount; cat++ {
		n += c.For(component.Category(cat))
	}
	return n
}

// Default returns the embedded defaults.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultYAML, &cfg); err != nil {
		panic(fmt.Sprintf("config: embedded default: %v", err))
	}
	return &cfg
}

// Load overlays the yaml file at path on the defaults. An empty path falls
// back to DANMAKU_CONFIG, and to the defaults alone when that is unset too.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("DANMAKU_CONFIG")
	}
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := Parse(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data over cfg and validates the result.
func Parse(data []byte, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", ErrInvalid)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse: %w", err)
	}
	return cfg.Validate()
}

func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil config", ErrInvalid)
	}
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	check(c.TickRate > 0, "tick_rate %d must be positive", c.TickRate)
	check(c.Playfield.Width > 0 && c.Playfield.Height > 0, "playfield %gx%g must be positive", c.Playfield.Width, c.Playfield.Height)
	check(c.Playfield.CullMargin >= 0, "cull_margin %g must be >= 0", c.Playfield.CullMargin)
	for cat := 0; cat < component.CategoryCount; cat++ {
		n := c.Capacity.For(component.Category(cat))
		check(n > 0, "capacity.%s %d must be positive", component.Category(cat), n)
	}
	check(c.Collision.CellSize > 0, "collision.cell_size %g must be positive", c.Collision.CellSize)
	check(c.Collision.BroadphaseThreshold >= 0, "collision.broadphase_threshold %d must be >= 0", c.Collision.BroadphaseThreshold)
	check(c.Script.MaxStepsPerFrame > 0, "script.max_steps_per_frame %d must be positive", c.Script.MaxStepsPerFrame)
	check(c.Player.StartX >= 0 && c.Player.StartX <= c.Playfield.Width &&
		c.Player.StartY >= 0 && c.Player.StartY <= c.Playfield.Height,
		"player start (%g, %g) is outside the playfield", c.Player.StartX, c.Player.StartY)

	return errors.Join(errs...)
}
