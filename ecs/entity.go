package ecs

import "strconv"

// Entity is a pool handle: generation in the high 32 bits, slot index + 1 in
// the low 32 bits. The zero Entity is never issued.
type Entity uint64

type entityID uint32
type generation uint32

const entityIDBits = 32

func makeEntity(slot int, gen generation) Entity {
	return Entity(uint64(gen)<<entityIDBits | uint64(entityID(slot+1)))
}

func (e Entity) id() entityID {
	return entityID(uint32(e))
}

func (e Entity) generation() generation {
	return generation(uint32(uint64(e) >> entityIDBits))
}

// Slot is the global pool slot of e, or -1 for the zero handle.
func (e Entity) Slot() int {
	return int(e.id()) - 1
}

func (e Entity) String() string {
	return strconv.FormatUint(uint64(e.id()), 10) + "v" + strconv.FormatUint(uint64(e.generation()), 10)
}

func (e Entity) Valid() bool {
	return e.id() > 0
}
