package component

// CollisionLayer lets an entity narrow which categories it touches beyond
// what the collision rule table allows.
type CollisionLayer struct {
	// Mask is the set of categories this entity may collide with. If zero,
	// every category permitted by the rule table is accepted.
	Mask CategoryMask `yaml:"mask,omitempty"`
}

// Accepts reports whether an entity with this layer may touch c.
func (l CollisionLayer) Accepts(c Category) bool {
	return l.Mask == 0 || l.Mask.Has(c)
}
