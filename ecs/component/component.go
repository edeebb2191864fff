package component

import "strings"

// Category is the closed set of entity kinds. Subsystems dispatch on it
// through per-category tables instead of per-type behaviour.
type Category uint8

const (
	CategoryPlayer Category = iota
	CategoryEnemy
	CategoryPlayerBullet
	CategoryEnemyBullet
	CategoryEffect
	CategoryPowerUp

	CategoryCount = int(CategoryPowerUp) + 1
)

var categoryNames = [CategoryCount]string{
	"player",
	"enemy",
	"player_bullet",
	"enemy_bullet",
	"effect",
	"power_up",
}

func (c Category) String() string {
	if int(c) < CategoryCount {
		return categoryNames[c]
	}
	return "unknown"
}

func (c Category) Valid() bool {
	return int(c) < CategoryCount
}

// Bit returns the mask bit for c.
func (c Category) Bit() CategoryMask {
	return CategoryMask(1) << c
}

// ParseCategory maps a data name ("enemy_bullet", "power-up", "PowerUp") to a
// Category.
func ParseCategory(name string) (Category, bool) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "-", "_"))
	for i, n := range categoryNames {
		if n == norm || strings.ReplaceAll(n, "_", "") == norm {
			return Category(i), true
		}
	}
	return 0, false
}

// CategoryMask is a bit set over categories.
type CategoryMask uint32

const MaskAll = CategoryMask(1<<CategoryCount - 1)

func MaskOf(cats ...Category) CategoryMask {
	var m CategoryMask
	for _, c := range cats {
		m |= c.Bit()
	}
	return m
}

func (m CategoryMask) Has(c Category) bool {
	return m&c.Bit() != 0
}
