package system

import (
	"errors"
	"fmt"

	"github.com/milk9111/danmaku/ecs/component"
)

var ErrInvalidRule = errors.New("system: invalid collision rule")

// Policy is what happens to one side of a colliding pair.
type Policy struct {
	// Damage applies the other side's Damage to this side's health.
	Damage bool
	// Consume retires this side after its first hit.
	Consume bool
	// Collect adds the other side's Value to the player's power.
	Collect bool
}

// Rule is the contract for an unordered pair of categories.
type Rule struct {
	Name string
	A, B component.Category
	OnA  Policy
	OnB  Policy
}

// swapped returns r seen from B's side.
func (r Rule) swapped() Rule {
	return Rule{Name: r.Name, A: r.B, B: r.A, OnA: r.OnB, OnB: r.OnA}
}

// RuleTable is the static pair table consulted by the collision system.
type RuleTable struct {
	rules  []Rule
	lookup [component.CategoryCount][component.CategoryCount]int // index+1, 0 = none
}

// NewRuleTable validates rules. Self-category pairs and pairs listed twice
// in either order are rejected.
func NewRuleTable(rules ...Rule) (*RuleTable, error) {
	t := &RuleTable{rules: make([]Rule, 0, len(rules))}
	for i, r := range rules {
		switch {
		case !r.A.Valid() || !r.B.Valid():
			return nil, fmt.Errorf("%w: rule %d has an unknown category", ErrInvalidRule, i)
		case r.A == r.B:
			return nil, fmt.Errorf("%w: rule %d pairs %s with itself", ErrInvalidRule, i, r.A)
		case t.lookup[r.A][r.B] != 0:
			return nil, fmt.Errorf("%w: rule %d duplicates %s/%s", ErrInvalidRule, i, r.A, r.B)
		}
		if r.Name == "" {
			r.Name = r.A.String() + "/" + r.B.String()
		}
		t.rules = append(t.rules, r)
		t.lookup[r.A][r.B] = len(t.rules)
		t.lookup[r.B][r.A] = len(t.rules)
	}
	return t, nil
}

// DefaultRules is the standard shooter contract.
func DefaultRules() []Rule {
	return []Rule{
		{
			A:   component.CategoryPlayerBullet,
			B:   component.CategoryEnemy,
			OnA: Policy{Consume: true},
			OnB: Policy{Damage: true},
		},
		{
			A:   component.CategoryEnemyBullet,
			B:   component.CategoryPlayer,
			OnA: Policy{Consume: true},
			OnB: Policy{Damage: true},
		},
		{
			A:   component.CategoryEnemy,
			B:   component.CategoryPlayer,
			OnB: Policy{Damage: true},
		},
		{
			A:   component.CategoryPowerUp,
			B:   component.CategoryPlayer,
			OnA: Policy{Consume: true},
			OnB: Policy{Collect: true},
		},
	}
}

// DefaultRuleTable builds the table from DefaultRules.
func DefaultRuleTable() *RuleTable {
	t, err := NewRuleTable(DefaultRules()...)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the rule for a and b oriented so that rule.A == a.
func (t *RuleTable) Lookup(a, b component.Category) (Rule, bool) {
	if t == nil || !a.Valid() || !b.Valid() {
		return Rule{}, false
	}
	idx := t.lookup[a][b]
	if idx == 0 {
		return Rule{}, false
	}
	r := t.rules[idx-1]
	if r.A != a {
		r = r.swapped()
	}
	return r, true
}

// Rules returns the rules in table order.
func (t *RuleTable) Rules() []Rule {
	if t == nil {
		return nil
	}
	return t.rules
}
