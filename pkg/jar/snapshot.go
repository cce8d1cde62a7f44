package jar

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sw33tLie/fruitjar/pkg/fruit"
)

// IDSource mints jar ids for fruits entering the jar.
type IDSource interface {
	NewJarID(f fruit.Fruit) string
}

// UUIDSource mints ids of the form "<fruit id>-<uuid>", unique even when the
// same fruit is added many times.
type UUIDSource struct{}

func (UUIDSource) NewJarID(f fruit.Fruit) string {
	return fmt.Sprintf("%d-%s", f.ID, uuid.NewString())
}

// With returns a new snapshot holding s followed by items.
func (s Snapshot) With(items ...fruit.JarFruit) Snapshot {
	out := make(Snapshot, 0, len(s)+len(items))
	out = append(out, s...)
	return append(out, items...)
}

// Without returns a new snapshot lacking the item with jarID.
func (s Snapshot) Without(jarID string) (Snapshot, bool) {
	for i, jf := range s {
		if jf.JarID == jarID {
			return s.WithoutIndex(i)
		}
	}
	return nil, false
}

// WithoutIndex returns a new snapshot lacking the item at position i.
func (s Snapshot) WithoutIndex(i int) (Snapshot, bool) {
	if i < 0 || i >= len(s) {
		return nil, false
	}
	out := make(Snapshot, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...), true
}

// Find looks up a jar item by id.
func (s Snapshot) Find(jarID string) (fruit.JarFruit, bool) {
	for _, jf := range s {
		if jf.JarID == jarID {
			return jf, true
		}
	}
	return fruit.JarFruit{}, false
}
