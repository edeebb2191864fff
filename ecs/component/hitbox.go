package component

import "github.com/milk9111/danmaku/common"

// Hitbox is a collision shape relative to the entity transform.
type Hitbox struct {
	Shape   common.ShapeKind
	Radius  float64
	Width   float64
	Height  float64
	OffsetX float64
	OffsetY float64
}

// At returns the world-space shape for an entity at pos.
func (h Hitbox) At(pos common.Vec) common.Shape {
	c := common.V(pos.X+h.OffsetX, pos.Y+h.OffsetY)
	if h.Shape == common.ShapeRect {
		return common.Rect(c, h.Width, h.Height)
	}
	return common.Circle(c, h.Radius)
}

// Empty reports a hitbox that can never overlap anything.
func (h Hitbox) Empty() bool {
	if h.Shape == common.ShapeRect {
		return h.Width <= 0 || h.Height <= 0
	}
	return h.Radius <= 0
}
