package stage

import (
	"fmt"
	"math"

	"github.com/milk9111/danmaku/common"
)

type FormationKind uint8

const (
	FormationSingle FormationKind = iota + 1
	FormationLine
	FormationCircle
	FormationV
)

var formationNames = map[string]FormationKind{
	"single": FormationSingle,
	"line":   FormationLine,
	"circle": FormationCircle,
	"v":      FormationV,
}

func ParseFormationKind(name string) (FormationKind, bool) {
	k, ok := formationNames[name]
	return k, ok
}

func (k FormationKind) String() string {
	for name, kind := range formationNames {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// Formation places the members of a spawn wave. (X, Y) is the anchor: the
// first member for line, the centre for circle and the apex for v. Start is
// in radians.
type Formation struct {
	Kind   FormationKind
	X, Y   float64
	DX, DY float64
	Radius float64
	Start  float64
}

func (f Formation) Validate() error {
	if f.Kind < FormationSingle || f.Kind > FormationV {
		return fmt.Errorf("%w: unknown formation", ErrInvalidEvent)
	}
	for _, v := range []float64{f.X, f.Y, f.DX, f.DY, f.Radius, f.Start} {
		if !common.Finite(v) {
			return fmt.Errorf("%w: formation %s has a non-finite parameter", ErrInvalidEvent, f.Kind)
		}
	}
	if f.Kind == FormationCircle && f.Radius < 0 {
		return fmt.Errorf("%w: circle radius must be >= 0", ErrInvalidEvent)
	}
	return nil
}

// Positions appends count member positions to dst.
func (f Formation) Positions(count int, dst []common.Vec) []common.Vec {
	anchor := common.V(f.X, f.Y)
	for i := 0; i < count; i++ {
		switch f.Kind {
		case FormationLine:
			dst = append(dst, common.V(f.X+float64(i)*f.DX, f.Y+float64(i)*f.DY))
		case FormationCircle:
			a := f.Start + 2*math.Pi*float64(i)/float64(count)
			dst = append(dst, anchor.Add(common.FromAngle(a, f.Radius)))
		case FormationV:
			// 0 is the apex, then alternating left and right arms.
			k := float64((i + 1) / 2)
			side := 1.0
			if i%2 == 1 {
				side = -1
			}
			dst = append(dst, common.V(f.X+side*k*f.DX, f.Y+k*f.DY))
		default:
			dst = append(dst, anchor)
		}
	}
	return dst
}
