package fruit

import (
	"fmt"
	"strings"
)

// Nutrition holds the per-fruit nutrition facts reported by the catalog.
type Nutrition struct {
	Calories      float64 `json:"calories"`
	Fat           float64 `json:"fat"`
	Sugar         float64 `json:"sugar"`
	Carbohydrates float64 `json:"carbohydrates"`
	Protein       float64 `json:"protein"`
}

// Fruit is a single catalog entry. Fruits are treated as values: the jar
// copies them, it never edits them.
type Fruit struct {
	ID         int       `json:"id"`
	Name       string    `json:"name"`
	Family     string    `json:"family"`
	Order      string    `json:"order"`
	Genus      string    `json:"genus"`
	Nutritions Nutrition `json:"nutritions"`
}

// JarFruit is a Fruit placed in the jar. JarID is unique within a jar
// snapshot, so the same Fruit can sit in the jar several times.
type JarFruit struct {
	Fruit
	JarID string `json:"jarId"`
}

// GroupMode selects the taxonomy field used to group fruits.
type GroupMode string

const (
	GroupNone   GroupMode = "None"
	GroupFamily GroupMode = "Family"
	GroupOrder  GroupMode = "Order"
	GroupGenus  GroupMode = "Genus"
)

// GroupModes lists every supported mode in display order.
var GroupModes = []GroupMode{GroupNone, GroupFamily, GroupOrder, GroupGenus}

// ParseGroupMode accepts a mode name in any letter case.
func ParseGroupMode(s string) (GroupMode, error) {
	for _, m := range GroupModes {
		if strings.EqualFold(strings.TrimSpace(s), string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("invalid group mode %q (available: none, family, order, genus)", s)
}

// Keyed is implemented by anything that can be grouped by a GroupMode.
type Keyed interface {
	GroupKey(mode GroupMode) string
}

// GroupKey returns the value of the field selected by mode. GroupNone (and
// any unknown mode) yields the empty string.
func (f Fruit) GroupKey(mode GroupMode) string {
	switch mode {
	case GroupFamily:
		return f.Family
	case GroupOrder:
		return f.Order
	case GroupGenus:
		return f.Genus
	}
	return ""
}

// InJar copies f into the jar under the given jar id.
func (f Fruit) InJar(jarID string) JarFruit {
	return JarFruit{Fruit: f, JarID: jarID}
}
