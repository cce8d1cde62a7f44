// Package aggregate derives grouped views and nutrition totals from catalog
// and jar contents. Every function is pure and deterministic.
package aggregate

import (
	"sort"

	"github.com/sw33tLie/fruitjar/pkg/fruit"
)

// AllFruitsLabel names the single group produced by fruit.GroupNone.
const AllFruitsLabel = "All Fruits"

// Group is one partition of a grouped view.
type Group[T any] struct {
	Key   string `json:"key"`
	Items []T    `json:"items"`
}

// Groups is an ordered grouped view. Groups appear in the order their key
// was first seen in the input.
type Groups[T any] []Group[T]

// Get returns the items filed under key.
func (g Groups[T]) Get(key string) ([]T, bool) {
	for _, grp := range g {
		if grp.Key == key {
			return grp.Items, true
		}
	}
	return nil, false
}

func (g Groups[T]) Len() int { return len(g) }

// Keys returns the group keys in order.
func (g Groups[T]) Keys() []string {
	keys := make([]string, 0, len(g))
	for _, grp := range g {
		keys = append(keys, grp.Key)
	}
	return keys
}

// GroupBy partitions items by the field selected by mode, using exact,
// case-sensitive comparison. Each group keeps the relative input order.
func GroupBy[T fruit.Keyed](items []T, mode fruit.GroupMode) Groups[T] {
	if mode == fruit.GroupNone || mode == "" {
		all := make([]T, len(items))
		copy(all, items)
		return Groups[T]{{Key: AllFruitsLabel, Items: all}}
	}

	index := make(map[string]int)
	var out Groups[T]
	for _, item := range items {
		key := item.GroupKey(mode)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, Group[T]{Key: key})
		}
		out[i].Items = append(out[i].Items, item)
	}
	return out
}

// Totals is the summed nutrition of a jar.
type Totals struct {
	Calories float64 `json:"calories"`
	Sugar    float64 `json:"sugar"`
	Fat      float64 `json:"fat"`
}

// SumNutrition adds up calories, sugar and fat across the jar. Values are
// added in ascending order, so any permutation of the same jar yields
// bit-identical totals.
func SumNutrition(items []fruit.JarFruit) Totals {
	calories := make([]float64, 0, len(items))
	sugar := make([]float64, 0, len(items))
	fat := make([]float64, 0, len(items))
	for _, it := range items {
		calories = append(calories, it.Nutritions.Calories)
		sugar = append(sugar, it.Nutritions.Sugar)
		fat = append(fat, it.Nutritions.Fat)
	}
	return Totals{
		Calories: sortedSum(calories),
		Sugar:    sortedSum(sugar),
		Fat:      sortedSum(fat),
	}
}

func sortedSum(vals []float64) float64 {
	sort.Float64s(vals)
	var total float64
	for _, v := range vals {
		total += v
	}
	return total
}

// NameCount is the number of jar items sharing a fruit name.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Distribution counts jar items per fruit name, in first-seen order.
func Distribution(items []fruit.JarFruit) []NameCount {
	index := make(map[string]int)
	var out []NameCount
	for _, it := range items {
		i, ok := index[it.Name]
		if !ok {
			i = len(out)
			index[it.Name] = i
			out = append(out, NameCount{Name: it.Name})
		}
		out[i].Count++
	}
	return out
}
