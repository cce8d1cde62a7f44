package fruit

import (
	"fmt"
	"math"
	"strconv"

	"github.com/tidwall/gjson"
)

// nutritionFields are the keys a nutrition object must carry, and the only
// keys it may carry.
var nutritionFields = []string{"calories", "fat", "sugar", "carbohydrates", "protein"}

var taxonomyFields = []string{"name", "family", "order", "genus"}

// ValidationError explains why a payload was rejected. Index is the position
// of the offending element, or -1 when the payload itself is malformed.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return "invalid catalog payload: " + e.Reason
	}
	if e.Field == "" {
		return fmt.Sprintf("invalid fruit at index %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("invalid fruit at index %d: %s: %s", e.Index, e.Field, e.Reason)
}

// IsFruitNutrition reports whether r is an object holding exactly the five
// nutrition fields, each a finite number. Negative values are allowed.
func IsFruitNutrition(r gjson.Result) bool {
	_, ok := checkNutrition(r)
	return ok
}

// IsFruit reports whether r has an integral numeric id, string taxonomy
// fields and a valid nutrition object.
func IsFruit(r gjson.Result) bool {
	_, _, ok := checkFruit(r)
	return ok
}

// IsJarFruit is IsFruit plus a non-empty string jarId.
func IsJarFruit(r gjson.Result) bool {
	if _, _, ok := checkFruit(r); !ok {
		return false
	}
	id := r.Get("jarId")
	return id.Type == gjson.String && id.Str != ""
}

// IsFruitCollection reports whether r is an array in which every element is
// a fruit. An empty array is a valid collection.
func IsFruitCollection(r gjson.Result) bool {
	if !r.IsArray() {
		return false
	}
	ok := true
	r.ForEach(func(_, item gjson.Result) bool {
		ok = IsFruit(item)
		return ok
	})
	return ok
}

// ValidateCatalog classifies an untrusted payload. It returns the decoded
// catalog when every element is a fruit, and a *ValidationError otherwise.
// Nothing is coerced or dropped: one bad element rejects the whole payload.
func ValidateCatalog(payload []byte) ([]Fruit, error) {
	if !gjson.ValidBytes(payload) {
		return nil, &ValidationError{Index: -1, Reason: "not valid JSON"}
	}
	root := gjson.ParseBytes(payload)
	if !root.IsArray() {
		return nil, &ValidationError{Index: -1, Reason: "expected a JSON array"}
	}

	items := root.Array()
	fruits := make([]Fruit, 0, len(items))
	for i, item := range items {
		if field, reason, ok := checkFruit(item); !ok {
			return nil, &ValidationError{Index: i, Field: field, Reason: reason}
		}
		fruits = append(fruits, fromResult(item))
	}
	return fruits, nil
}

// DecodeJarFruit builds a JarFruit from a result that passed IsJarFruit.
func DecodeJarFruit(r gjson.Result) JarFruit {
	return fromResult(r).InJar(r.Get("jarId").Str)
}

func checkFruit(r gjson.Result) (field, reason string, ok bool) {
	if !r.IsObject() {
		return "", "expected an object", false
	}

	id := r.Get("id")
	if id.Type != gjson.Number {
		return "id", "expected a number", false
	}
	if !isFinite(id.Num) || id.Num != math.Trunc(id.Num) {
		return "id", "expected an integer", false
	}
	if _, ok := parseID(id); !ok {
		return "id", "out of range", false
	}

	for _, name := range taxonomyFields {
		if r.Get(name).Type != gjson.String {
			return name, "expected a string", false
		}
	}

	if reason, ok := checkNutrition(r.Get("nutritions")); !ok {
		return "nutritions", reason, false
	}
	return "", "", true
}

func checkNutrition(r gjson.Result) (string, bool) {
	if !r.IsObject() {
		return "expected an object", false
	}

	for _, name := range nutritionFields {
		v := r.Get(name)
		if !v.Exists() {
			return name + " is missing", false
		}
		if v.Type != gjson.Number {
			return name + " is not a number", false
		}
		if !isFinite(v.Num) {
			return name + " is not finite", false
		}
	}

	keys := 0
	r.ForEach(func(_, _ gjson.Result) bool {
		keys++
		return true
	})
	if keys != len(nutritionFields) {
		return fmt.Sprintf("expected exactly %d fields, got %d", len(nutritionFields), keys), false
	}
	return "", true
}

// maxExactFloat bounds ids written in exponent or decimal form. From 2^53 on
// neighbouring integers share one float64.
const maxExactFloat = 1 << 53

// parseID returns the integer id only when it is representable as an int
// without rounding. Plain integer literals are parsed from the raw text;
// exponent or decimal forms such as 6e0 must stay within float64's exact
// integer range.
func parseID(id gjson.Result) (int, bool) {
	if n, err := strconv.ParseInt(id.Raw, 10, strconv.IntSize); err == nil {
		return int(n), true
	}
	if math.Abs(id.Num) >= maxExactFloat {
		return 0, false
	}
	n := int64(id.Num)
	if int64(int(n)) != n {
		return 0, false
	}
	return int(n), true
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// fromResult assumes r already passed checkFruit.
func fromResult(r gjson.Result) Fruit {
	n := r.Get("nutritions")
	id, _ := parseID(r.Get("id"))
	return Fruit{
		ID:     id,
		Name:   r.Get("name").Str,
		Family: r.Get("family").Str,
		Order:  r.Get("order").Str,
		Genus:  r.Get("genus").Str,
		Nutritions: Nutrition{
			Calories:      n.Get("calories").Num,
			Fat:           n.Get("fat").Num,
			Sugar:         n.Get("sugar").Num,
			Carbohydrates: n.Get("carbohydrates").Num,
			Protein:       n.Get("protein").Num,
		},
	}
}
