package component

// Archetype is the read-only template an entity is spawned from.
type Archetype struct {
	Name     string
	Category Category
	Hitbox   Hitbox
	Health   int
	Damage   int
	Value    int
	TTL      TTL
	Layer    CollisionLayer
	Sprite   Sprite
	Script   string
}
