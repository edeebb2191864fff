package component

// TTL is a frame-based lifetime. An entity whose age reaches Frames is
// retired at end of tick; zero disables the limit.
type TTL struct {
	Frames int
}

func (t TTL) Expired(age int) bool {
	return t.Frames > 0 && age >= t.Frames
}
