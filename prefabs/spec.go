package prefabs

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// StageSpec is the authored form of a stage. Angles are degrees.
type StageSpec struct {
	Name       string                   `yaml:"name"`
	Player     PlayerSpec               `yaml:"player"`
	Archetypes map[string]ArchetypeSpec `yaml:"archetypes"`
	Patterns   map[string]PatternSpec   `yaml:"patterns"`
	Scripts    map[string][]any         `yaml:"scripts"`
	Timeline   []EventSpec              `yaml:"timeline"`

	// File is where the spec was read from, used to prefix errors.
	File string `yaml:"-"`
}

type PlayerSpec struct {
	Archetype  string  `yaml:"archetype"`
	Speed      float64 `yaml:"speed"`
	FocusSpeed float64 `yaml:"focus_speed"`
	FireRate   int     `yaml:"fire_rate"`
	Shot       string  `yaml:"shot"`
	FocusShot  string  `yaml:"focus_shot"`
	Bombs      int     `yaml:"bombs"`
	IFrames    int     `yaml:"iframes"`
}

type ArchetypeSpec struct {
	Category string     `yaml:"category"`
	Hitbox   HitboxSpec `yaml:"hitbox"`
	Health   int        `yaml:"health"`
	Damage   int        `yaml:"damage"`
	Value    int        `yaml:"value"`
	TTL      int        `yaml:"ttl"`
	// CollidesWith narrows the categories this archetype touches. Empty
	// means every category the rule table allows.
	CollidesWith []string `yaml:"collides_with"`
	Sprite       string   `yaml:"sprite"`
	Script       string   `yaml:"script"`
}

type HitboxSpec struct {
	Shape   string  `yaml:"shape"`
	Radius  float64 `yaml:"radius"`
	Width   float64 `yaml:"width"`
	Height  float64 `yaml:"height"`
	OffsetX float64 `yaml:"offset_x"`
	OffsetY float64 `yaml:"offset_y"`
}

type PatternSpec struct {
	Kind      string  `yaml:"kind"`
	Count     int     `yaml:"count"`
	Speed     float64 `yaml:"speed"`
	SpeedMax  float64 `yaml:"speed_max"`
	Angle     float64 `yaml:"angle"`
	Spread    float64 `yaml:"spread"`
	Step      float64 `yaml:"step"`
	Radius    float64 `yaml:"radius"`
	Aim       bool    `yaml:"aim"`
	Archetype string  `yaml:"archetype"`
	Script    string  `yaml:"script"`
}

// EventSpec is one timeline entry. Kind defaults to spawn.
type EventSpec struct {
	At        int           `yaml:"at"`
	Kind      string        `yaml:"kind"`
	Archetype string        `yaml:"archetype"`
	Script    string        `yaml:"script"`
	Count     int           `yaml:"count"`
	Formation FormationSpec `yaml:"formation"`
	Speed     float64       `yaml:"speed"`
	Angle     float64       `yaml:"angle"`
	Name      string        `yaml:"name"`
	Hold      int           `yaml:"hold"`
}

type FormationSpec struct {
	Kind   string  `yaml:"kind"`
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	DX     float64 `yaml:"dx"`
	DY     float64 `yaml:"dy"`
	Radius float64 `yaml:"radius"`
	Start  float64 `yaml:"start"`
}

func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := Load(filename)
	if err != nil {
		return zero, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("prefabs: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

// LoadStage reads stages/<name>.yaml, preferring a copy on disk over the
// embedded one.
func LoadStage(name string) (*StageSpec, error) {
	file := stageFile(name)
	spec, err := LoadSpec[StageSpec](file)
	if err != nil {
		return nil, err
	}
	spec.File = file
	if spec.Name == "" {
		spec.Name = strings.TrimSuffix(name, ".yaml")
	}
	return &spec, nil
}

// ParseStage decodes a stage from raw yaml.
func ParseStage(data []byte) (*StageSpec, error) {
	var spec StageSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("prefabs: unmarshal stage: %w", err)
	}
	return &spec, nil
}

func stageFile(name string) string {
	name = cleanPrefabPath(name)
	name = strings.TrimPrefix(name, "stages/")
	if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
		name += ".yaml"
	}
	return "stages/" + name
}
