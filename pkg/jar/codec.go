package jar

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sw33tLie/fruitjar/pkg/fruit"
	"github.com/tidwall/gjson"
)

// ErrCorruptState wraps every reason Decode rejects persisted state.
var ErrCorruptState = errors.New("corrupt jar state")

// Encode renders h as the two persisted slot values: the snapshot list as a
// JSON array of arrays and the cursor as a decimal integer.
func Encode(h History) (history, index string, err error) {
	snaps := make([][]fruit.JarFruit, len(h.Snapshots))
	for i, s := range h.Snapshots {
		snaps[i] = s.clone()
	}
	b, err := json.Marshal(snaps)
	if err != nil {
		return "", "", fmt.Errorf("encoding jar history: %w", err)
	}
	return string(b), strconv.Itoa(h.Index), nil
}

// Decode parses persisted slot values. It accepts only an array of arrays of
// well-formed jar fruits and an integer cursor within bounds, and the result
// must satisfy every History invariant.
func Decode(history, index string) (History, error) {
	if !gjson.Valid(history) {
		return History{}, fmt.Errorf("%w: history is not valid JSON", ErrCorruptState)
	}
	root := gjson.Parse(history)
	if !root.IsArray() {
		return History{}, fmt.Errorf("%w: history is not an array", ErrCorruptState)
	}

	raw := root.Array()
	h := History{Snapshots: make([]Snapshot, 0, len(raw))}
	for i, snap := range raw {
		if !snap.IsArray() {
			return History{}, fmt.Errorf("%w: snapshot %d is not an array", ErrCorruptState, i)
		}
		items := snap.Array()
		s := make(Snapshot, 0, len(items))
		for j, item := range items {
			if !fruit.IsJarFruit(item) {
				return History{}, fmt.Errorf("%w: snapshot %d item %d is not a jar fruit", ErrCorruptState, i, j)
			}
			s = append(s, fruit.DecodeJarFruit(item))
		}
		h.Snapshots = append(h.Snapshots, s)
	}

	idx, err := strconv.Atoi(strings.TrimSpace(index))
	if err != nil {
		return History{}, fmt.Errorf("%w: index %q is not an integer", ErrCorruptState, index)
	}
	h.Index = idx

	if err := h.Validate(); err != nil {
		return History{}, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return h, nil
}
