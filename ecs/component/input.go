package component

// Input is the player intent for one tick.
type Input struct {
	MoveX   float64 `msgpack:"mx"`
	MoveY   float64 `msgpack:"my"`
	Fire    bool    `msgpack:"f"`
	Focus   bool    `msgpack:"s"`
	Special bool    `msgpack:"b"`
}
