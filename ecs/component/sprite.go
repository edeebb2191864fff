package component

// Sprite is an opaque render reference. The engine never interprets it.
type Sprite struct {
	Key   string
	Frame int
}
