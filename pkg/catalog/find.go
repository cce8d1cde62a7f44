package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sw33tLie/fruitjar/pkg/fruit"
)

var ErrNotFound = errors.New("fruit not found")

func FindByID(fs []fruit.Fruit, id int) (fruit.Fruit, error) {
	for _, f := range fs {
		if f.ID == id {
			return f, nil
		}
	}
	return fruit.Fruit{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
}

// FindByName matches names case-insensitively.
func FindByName(fs []fruit.Fruit, name string) (fruit.Fruit, error) {
	for _, f := range fs {
		if strings.EqualFold(f.Name, strings.TrimSpace(name)) {
			return f, nil
		}
	}
	return fruit.Fruit{}, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Resolve looks a reference up as an id when it is a number and as a name
// otherwise.
func Resolve(fs []fruit.Fruit, ref string) (fruit.Fruit, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.Atoi(ref); err == nil {
		return FindByID(fs, id)
	}
	return FindByName(fs, ref)
}

// Search returns the fruits whose name contains query, ignoring case. An
// empty query matches everything.
func Search(fs []fruit.Fruit, query string) []fruit.Fruit {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []fruit.Fruit{}
	for _, f := range fs {
		if strings.Contains(strings.ToLower(f.Name), q) {
			out = append(out, f)
		}
	}
	return out
}
