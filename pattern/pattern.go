// Package pattern generates bullet spawn sets for a single firing instant.
// Generation is a pure function of the pattern parameters and the firing
// origin, so the same inputs always produce the same shots.
package pattern

import (
	"errors"
	"fmt"
	"math"

	"github.com/milk9111/danmaku/common"
)

var ErrMalformed = errors.New("pattern: malformed parameters")

type Kind uint8

const (
	KindRing Kind = iota + 1
	KindSpiral
	KindAimed
	KindBurst
)

var kindNames = map[string]Kind{
	"ring":   KindRing,
	"spiral": KindSpiral,
	"aimed":  KindAimed,
	"burst":  KindBurst,
}

// ParseKind maps a data name to a Kind.
func ParseKind(name string) (Kind, bool) {
	k, ok := kindNames[name]
	return k, ok
}

func (k Kind) String() string {
	for name, kind := range kindNames {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// Pattern is an immutable generator definition. Angles are radians.
type Pattern struct {
	Name     string
	Kind     Kind
	Count    int
	Speed    float64
	SpeedMax float64 // burst only, defaults to Speed
	Angle    float64 // base heading
	Spread   float64 // aimed: total fan width
	Step     float64 // spiral: rotation per shot index
	Radius   float64 // spawn distance from the origin
	Aim      bool    // rotate the base heading toward the target

	Archetype string
	Script    string
}

// Origin describes the firing entity at the trigger instant.
type Origin struct {
	Pos       common.Vec
	Target    common.Vec
	HasTarget bool
	Shot      int // how many times the firer has fired before
}

// Shot is one bullet spawn produced by a pattern.
type Shot struct {
	Offset    common.Vec
	Velocity  common.Vec
	Archetype string
	Script    string
}

// Validate reports malformed parameters. It is called once at load time.
func (p *Pattern) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil pattern", ErrMalformed)
	}
	switch {
	case p.Kind < KindRing || p.Kind > KindBurst:
		return fmt.Errorf("%w: %q has unknown kind", ErrMalformed, p.Name)
	case p.Count < 1:
		return fmt.Errorf("%w: %q count %d < 1", ErrMalformed, p.Name, p.Count)
	case !common.Finite(p.Speed) || p.Speed <= 0:
		return fmt.Errorf("%w: %q speed must be positive", ErrMalformed, p.Name)
	case !common.Finite(p.Angle) || !common.Finite(p.Step) || !common.Finite(p.Radius):
		return fmt.Errorf("%w: %q angle, step and radius must be finite", ErrMalformed, p.Name)
	case !common.Finite(p.Spread) || p.Spread < 0:
		return fmt.Errorf("%w: %q spread must be >= 0", ErrMalformed, p.Name)
	case p.Radius < 0:
		return fmt.Errorf("%w: %q radius must be >= 0", ErrMalformed, p.Name)
	case p.Kind == KindBurst && p.SpeedMax != 0 && (!common.Finite(p.SpeedMax) || p.SpeedMax < p.Speed):
		return fmt.Errorf("%w: %q speed_max must be >= speed", ErrMalformed, p.Name)
	case p.Archetype == "":
		return fmt.Errorf("%w: %q has no archetype", ErrMalformed, p.Name)
	}
	return nil
}

// Generate returns the shots for one trigger.
func (p *Pattern) Generate(o Origin) []Shot {
	if p == nil || p.Count < 1 {
		return nil
	}
	return p.AppendShots(make([]Shot, 0, p.Count), o)
}

// AppendShots appends the shots for one trigger to dst.
func (p *Pattern) AppendShots(dst []Shot, o Origin) []Shot {
	if p == nil || p.Count < 1 {
		return dst
	}

	base := p.Angle
	if (p.Aim || p.Kind == KindAimed) && o.HasTarget {
		base += common.AngleTo(o.Pos, o.Target)
	}

	n := p.Count
	for i := 0; i < n; i++ {
		angle := base
		speed := p.Speed
		switch p.Kind {
		case KindRing:
			angle = base + 2*math.Pi*float64(i)/float64(n)
		case KindSpiral:
			angle = base + p.Step*float64(o.Shot) + 2*math.Pi*float64(i)/float64(n)
		case KindAimed:
			if n > 1 {
				angle = base - p.Spread/2 + p.Spread*float64(i)/float64(n-1)
			}
		case KindBurst:
			if n > 1 && p.SpeedMax > p.Speed {
				speed = common.Lerp(p.Speed, p.SpeedMax, float64(i)/float64(n-1))
			}
		}
		dst = append(dst, Shot{
			Offset:    common.FromAngle(angle, p.Radius),
			Velocity:  common.FromAngle(angle, speed),
			Archetype: p.Archetype,
			Script:    p.Script,
		})
	}
	return dst
}
