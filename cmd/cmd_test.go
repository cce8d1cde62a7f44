package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/sw33tLie/fruitjar/pkg/aggregate"
	"github.com/sw33tLie/fruitjar/pkg/catalog"
	"github.com/sw33tLie/fruitjar/pkg/fruit"
	"github.com/sw33tLie/fruitjar/pkg/jar"
	"github.com/sw33tLie/fruitjar/pkg/storage"
)

type seqIDs struct{ n int }

func (s *seqIDs) NewJarID(f fruit.Fruit) string {
	s.n++
	return fmt.Sprintf("%d-%d", f.ID, s.n)
}

func TestResolveFruits(t *testing.T) {
	fs := catalog.Fallback()

	got, err := resolveFruits(fs, []string{"6", "banana", "Banana"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var names []string
	for _, f := range got {
		names = append(names, f.Name)
	}
	if want := []string{"Apple", "Banana", "Banana"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("want %v, got %v", want, names)
	}

	_, err = resolveFruits(fs, []string{"apple", "durian", "9999"})
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "durian, 9999") {
		t.Fatalf("expected every missing fruit in the error, got %v", err)
	}
}

func TestHistoryLines(t *testing.T) {
	h := jar.Default()
	apple := catalog.Fallback()[0]
	h.Push(jar.Snapshot{apple.InJar("a")})
	h.Undo()

	got := historyLines(h)
	want := []string{
		">   0  (empty)",
		"    1  Apple",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestDistributionLines(t *testing.T) {
	if got := distributionLines(nil, 10); len(got) != 1 || got[0] != "The jar is empty." {
		t.Fatalf("unexpected output for empty jar: %q", got)
	}

	got := distributionLines([]aggregate.NameCount{{Name: "Apple", Count: 3}, {Name: "Kiwi", Count: 1}}, 8)
	if len(got) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(got))
	}
	if !strings.Contains(got[0], "75.0%") || !strings.HasSuffix(got[0], "######") {
		t.Fatalf("unexpected apple line %q", got[0])
	}
	if !strings.Contains(got[1], "25.0%") || !strings.HasSuffix(got[1], "  ##") {
		t.Fatalf("unexpected kiwi line %q", got[1])
	}
}

func newTestREPL() (*repl, *jar.Store, *bytes.Buffer) {
	var out bytes.Buffer
	store := jar.New(context.Background(), storage.NewMemory(), jar.WithIDSource(&seqIDs{}))
	return newREPL(store, catalog.Fallback(), &out), store, &out
}

func TestREPLCommandsAndShortcuts(t *testing.T) {
	r, store, out := newTestREPL()
	input := strings.Join([]string{
		"add apple 1",
		"add-group family Rutaceae",
		"ctrl+z",
		"cmd+y",
		"\x1a",
		"remove 1",
		"bogus",
		"quit",
		"add pear",
	}, "\n")

	if err := r.Run(context.Background(), strings.NewReader(input)); err != nil {
		t.Fatalf("run: %v", err)
	}

	cur := store.Current()
	if len(cur) != 1 || cur[0].Name != "Banana" {
		t.Fatalf("unexpected jar: %#v", cur)
	}
	if h := store.History(); h.Len() != 3 || h.Index != 2 {
		t.Fatalf("expected the removal to replace the undone branch, got %d snapshots at %d", h.Len(), h.Index)
	}
	if !strings.Contains(out.String(), "Removed Apple\n") {
		t.Fatalf("expected the removed fruit to be named, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), `unknown command "bogus"`) {
		t.Fatalf("expected an unknown command error, got:\n%s", out.String())
	}
}

func TestRemoveRef(t *testing.T) {
	ctx := context.Background()
	store := jar.New(ctx, storage.NewMemory(), jar.WithIDSource(&seqIDs{}))
	fs := catalog.Fallback()
	if _, err := store.AddAll(ctx, fs[:3]); err != nil {
		t.Fatalf("add: %v", err)
	}
	second := store.Current()[1]

	got, err := removeRef(ctx, store, second.JarID)
	if err != nil || got != second {
		t.Fatalf("remove by jar id: got %#v, %v", got, err)
	}
	got, err = removeRef(ctx, store, "2")
	if err != nil || got.Name != fs[2].Name {
		t.Fatalf("remove by position: got %#v, %v", got, err)
	}

	if got, err := removeRef(ctx, store, "5"); !errors.Is(err, jar.ErrIndexOutOfRange) || got.JarID != "" {
		t.Fatalf("expected an out of range position, got %#v, %v", got, err)
	}
	if got, err := removeRef(ctx, store, "6-99"); !errors.Is(err, jar.ErrUnknownJarID) || got.JarID != "" {
		t.Fatalf("expected an unknown jar id, got %#v, %v", got, err)
	}
	if cur := store.Current(); len(cur) != 1 || cur[0].Name != fs[0].Name {
		t.Fatalf("unexpected jar: %#v", cur)
	}
}

func TestREPLSearchMode(t *testing.T) {
	r, store, out := newTestREPL()
	ctx := context.Background()

	for _, line := range []string{"ctrl+k", "apple", "2"} {
		if _, err := r.exec(ctx, line); err != nil {
			t.Fatalf("%q: %v", line, err)
		}
	}
	if r.searching {
		t.Fatalf("picking a result must leave search mode")
	}
	cur := store.Current()
	if len(cur) != 1 || cur[0].Name != "Pineapple" {
		t.Fatalf("expected Pineapple in the jar, got %#v", cur)
	}
	if !strings.Contains(out.String(), " 1. Apple: 52 calories, 10.3g sugar") {
		t.Fatalf("unexpected search output:\n%s", out.String())
	}

	r.exec(ctx, "^K")
	r.exec(ctx, "undo")
	if !r.searching {
		t.Fatalf("expected search mode to be on")
	}
	r.exec(ctx, "⌘k")
	if r.searching {
		t.Fatalf("expected search mode to be toggled off")
	}
}
