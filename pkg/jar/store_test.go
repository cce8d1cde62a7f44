package jar

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/sw33tLie/fruitjar/pkg/fruit"
)

type memKV struct {
	data   map[string]string
	writes int
	getErr error
	setErr error
}

func newMemKV() *memKV { return &memKV{data: map[string]string{}} }

func (m *memKV) Get(_ context.Context, key string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) SetMany(_ context.Context, values map[string]string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.writes++
	for k, v := range values {
		m.data[k] = v
	}
	return nil
}

type seqIDs struct{ n int }

func (s *seqIDs) NewJarID(f fruit.Fruit) string {
	s.n++
	return fmt.Sprintf("%d-%d", f.ID, s.n)
}

type recordingLogger struct {
	warnings []string
	errors   []string
}

func (r *recordingLogger) Infof(string, ...interface{})  {}
func (r *recordingLogger) Debugf(string, ...interface{}) {}
func (r *recordingLogger) Warnf(format string, args ...interface{}) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}
func (r *recordingLogger) Errorf(format string, args ...interface{}) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

var (
	apple  = fruit.Fruit{ID: 6, Name: "Apple", Family: "Rosaceae", Order: "Rosales", Genus: "Malus", Nutritions: fruit.Nutrition{Calories: 52, Fat: 0.4, Sugar: 10.3, Carbohydrates: 11.4, Protein: 0.3}}
	banana = fruit.Fruit{ID: 1, Name: "Banana", Family: "Musaceae", Order: "Zingiberales", Genus: "Musa", Nutritions: fruit.Nutrition{Calories: 96, Fat: 0.2, Sugar: 17.2, Carbohydrates: 22, Protein: 1}}
)

func TestNewWithoutSavedStateIsDefault(t *testing.T) {
	log := &recordingLogger{}
	s := New(context.Background(), newMemKV(), WithLogger(log))
	if !reflect.DeepEqual(s.History(), Default()) {
		t.Fatalf("expected default history, got %#v", s.History())
	}
	if len(log.warnings) != 0 {
		t.Fatalf("a fresh start must not warn, got %v", log.warnings)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	s := New(ctx, kv, WithIDSource(&seqIDs{}))

	if _, err := s.Add(ctx, apple); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := s.AddAll(ctx, []fruit.Fruit{banana, banana}); err != nil {
		t.Fatalf("add all: %v", err)
	}
	if _, err := s.Undo(ctx); err != nil {
		t.Fatalf("undo: %v", err)
	}

	reopened := New(ctx, kv)
	if !reflect.DeepEqual(reopened.History(), s.History()) {
		t.Fatalf("round trip mismatch.\nwant: %#v\ngot:  %#v", s.History(), reopened.History())
	}
	if !reopened.CanRedo() {
		t.Fatalf("expected redo to survive a restart")
	}
}

func TestWritesOnlyOnVisibleChange(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	s := New(ctx, kv)

	if moved, err := s.Undo(ctx); moved || err != nil {
		t.Fatalf("expected no-op undo, got %v, %v", moved, err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if added, err := s.AddAll(ctx, nil); added != nil || err != nil {
		t.Fatalf("expected empty add-all to be a no-op")
	}
	if kv.writes != 0 {
		t.Fatalf("expected no writes for no-op transitions, got %d", kv.writes)
	}

	s.Add(ctx, apple)
	s.Undo(ctx)
	s.Redo(ctx)
	if kv.writes != 3 {
		t.Fatalf("expected 3 writes, got %d", kv.writes)
	}
	if kv.data[IndexKey] != "1" {
		t.Fatalf("expected persisted index 1, got %q", kv.data[IndexKey])
	}
}

func TestCorruptStateFallsBackToDefault(t *testing.T) {
	valid, _, _ := Encode(History{Snapshots: []Snapshot{{}, snap("A")}, Index: 1})

	cases := []struct {
		name    string
		history string
		index   string
	}{
		{"index equals length", valid, "2"},
		{"negative index", valid, "-1"},
		{"index not a number", valid, "one"},
		{"history not json", "[[", "0"},
		{"history not array of arrays", `[[], {}]`, "0"},
		{"history object", `{"history":[]}`, "0"},
		{"empty history", `[]`, "0"},
		{"non-empty base", `[[{"id":1,"name":"a","family":"f","order":"o","genus":"g","nutritions":{"calories":1,"fat":1,"sugar":1,"carbohydrates":1,"protein":1},"jarId":"x"}]]`, "0"},
		{"item is not a fruit", `[[], [{"name":"a"}]]`, "1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kv := newMemKV()
			kv.data[HistoryKey] = tc.history
			kv.data[IndexKey] = tc.index
			log := &recordingLogger{}

			s := New(context.Background(), kv, WithLogger(log))
			if !reflect.DeepEqual(s.History(), Default()) {
				t.Fatalf("expected default history, got %#v", s.History())
			}
			if len(log.warnings) != 1 || !strings.Contains(log.warnings[0], "resetting") {
				t.Fatalf("expected one reset warning, got %v", log.warnings)
			}
		})
	}
}

func TestIncompleteOrUnreadableStateFallsBack(t *testing.T) {
	kv := newMemKV()
	kv.data[HistoryKey] = `[[]]`
	log := &recordingLogger{}
	s := New(context.Background(), kv, WithLogger(log))
	if !reflect.DeepEqual(s.History(), Default()) || len(log.warnings) != 1 {
		t.Fatalf("expected default history and a warning, got %#v %v", s.History(), log.warnings)
	}

	broken := newMemKV()
	broken.getErr = errors.New("disk on fire")
	log = &recordingLogger{}
	s = New(context.Background(), broken, WithLogger(log))
	if !reflect.DeepEqual(s.History(), Default()) || len(log.warnings) != 1 {
		t.Fatalf("expected default history and a warning, got %#v %v", s.History(), log.warnings)
	}
}

func TestWriteFailureStillAdvances(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	kv.setErr = errors.New("read-only")
	s := New(ctx, kv)

	_, err := s.Add(ctx, apple)
	if err == nil || !strings.Contains(err.Error(), "saving jar") {
		t.Fatalf("expected wrapped write error, got %v", err)
	}
	if len(s.Current()) != 1 {
		t.Fatalf("expected transition to apply despite write failure")
	}
}

func TestRemoveAndClear(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, newMemKV(), WithIDSource(&seqIDs{}))
	s.AddAll(ctx, []fruit.Fruit{apple, banana, apple})

	if err := s.Remove(ctx, "1-2"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	cur := s.Current()
	if len(cur) != 2 || cur[0].JarID != "6-1" || cur[1].JarID != "6-3" {
		t.Fatalf("unexpected jar after remove: %#v", cur)
	}
	if err := s.Remove(ctx, "nope"); !errors.Is(err, ErrUnknownJarID) {
		t.Fatalf("expected ErrUnknownJarID, got %v", err)
	}
	if err := s.RemoveAt(ctx, 5); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := s.RemoveAt(ctx, 0); err != nil {
		t.Fatalf("remove at: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(s.Current()) != 0 {
		t.Fatalf("expected empty jar after clear")
	}
	if h := s.History(); h.Len() != 5 || h.Index != 4 {
		t.Fatalf("expected 5 snapshots at index 4, got %d at %d", h.Len(), h.Index)
	}
}

func TestDuplicateFruitsGetDistinctIDs(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, nil)
	a, _ := s.Add(ctx, apple)
	b, _ := s.Add(ctx, apple)
	if a.JarID == b.JarID {
		t.Fatalf("expected distinct jar ids, got %q twice", a.JarID)
	}
	if !strings.HasPrefix(a.JarID, "6-") {
		t.Fatalf("expected jar id to start with the fruit id, got %q", a.JarID)
	}
}

func TestHistoryQueriesOnReturnedValue(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, newMemKV(), WithIDSource(&seqIDs{}))
	if _, err := s.Add(ctx, apple); err != nil {
		t.Fatalf("add: %v", err)
	}

	if s.History().Len() != 2 || !s.History().CanUndo() || s.History().CanRedo() {
		t.Fatalf("unexpected history after one add: %+v", s.History())
	}
	if got := s.History().Current(); len(got) != 1 || got[0].Name != apple.Name {
		t.Fatalf("unexpected current snapshot: %#v", got)
	}
	if err := s.History().Validate(); err != nil {
		t.Fatalf("unexpected invalid history: %v", err)
	}
}

type constIDs struct{}

func (constIDs) NewJarID(fruit.Fruit) string { return "same" }

func TestInvalidSnapshotRefused(t *testing.T) {
	ctx := context.Background()
	log := &recordingLogger{}
	s := New(ctx, newMemKV(), WithIDSource(constIDs{}), WithLogger(log))

	if _, err := s.AddAll(ctx, []fruit.Fruit{apple, banana}); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("expected ErrInvalidSnapshot, got %v", err)
	}
	if s.History().Len() != 1 {
		t.Fatalf("refused push must not change history")
	}
	if len(log.errors) != 1 {
		t.Fatalf("expected the defect to be logged, got %v", log.errors)
	}
}

func TestStrictModePanics(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, newMemKV(), WithIDSource(constIDs{}), WithStrict(true))

	defer func() {
		if recover() == nil {
			t.Fatalf("expected strict mode to panic")
		}
	}()
	s.AddAll(ctx, []fruit.Fruit{apple, banana})
}

func TestObserverSeesTransitions(t *testing.T) {
	ctx := context.Background()
	var ops []Op
	s := New(ctx, nil, WithObserver(func(op Op, h History) {
		ops = append(ops, op)
		if err := h.Validate(); err != nil {
			t.Fatalf("observer received invalid history: %v", err)
		}
	}))
	s.Add(ctx, banana)
	s.Undo(ctx)
	s.Undo(ctx)
	s.Redo(ctx)

	want := []Op{OpPush, OpUndo, OpRedo}
	if !reflect.DeepEqual(ops, want) {
		t.Fatalf("unexpected ops.\nwant: %v\ngot:  %v", want, ops)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	h := Default()
	h.Push(snap("A"))
	h.Push(snap("A", "B"))
	h.Undo()

	history, index, err := Encode(h)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if index != "1" || !strings.HasPrefix(history, "[[],") || !strings.Contains(history, `"jarId":"A"`) {
		t.Fatalf("unexpected encoding: %s / %s", history, index)
	}

	got, err := Decode(history, index)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, h) {
		t.Fatalf("round trip mismatch.\nwant: %#v\ngot:  %#v", h, got)
	}

	if _, err := Decode(history, "3"); !errors.Is(err, ErrCorruptState) {
		t.Fatalf("expected ErrCorruptState for out-of-bounds index, got %v", err)
	}
}
