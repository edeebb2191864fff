package component

// Player holds the controller parameters and runtime counters of the player
// craft.
type Player struct {
	Speed       float64
	FocusSpeed  float64
	FireRate    int // ticks between shots
	ShotPattern string
	FocusShot   string
	Bombs       int
	IFrames     int // invulnerability granted after a hit

	Cooldown int
	Power    int
	Shots    int
	Special  bool // special was held last tick
}
