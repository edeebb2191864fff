package component

// Invulnerable marks an entity as temporarily immune to damage. Frames
// counts down once per tick; zero means vulnerable.
type Invulnerable struct {
	Frames int
}

func (i Invulnerable) Active() bool {
	return i.Frames > 0
}
