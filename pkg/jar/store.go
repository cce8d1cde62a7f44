package jar

import (
	"context"
	"errors"
	"fmt"

	"github.com/sw33tLie/fruitjar/pkg/fruit"
)

// Slot keys used in the key/value store.
const (
	HistoryKey = "jarHistory"
	IndexKey   = "historyIndex"
)

var (
	ErrUnknownJarID    = errors.New("no fruit with that jar id")
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// KV is the durable key/value storage the store reads at start-up and writes
// after every visible change. SetMany must write all values atomically.
type KV interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	SetMany(ctx context.Context, values map[string]string) error
}

// Forget deletes both persisted slots, so the next New starts from the
// default history.
func Forget(ctx context.Context, kv interface {
	Delete(ctx context.Context, keys ...string) error
}) error {
	return kv.Delete(ctx, HistoryKey, IndexKey)
}

// Logger abstracts logging so callers can plug in logrus or anything with
// the same printf-style methods.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Op names a history transition.
type Op string

const (
	OpPush Op = "push"
	OpUndo Op = "undo"
	OpRedo Op = "redo"
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Nil keeps the silent default.
func WithLogger(l Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithIDSource replaces the default UUID-based jar id minting.
func WithIDSource(ids IDSource) Option {
	return func(s *Store) {
		if ids != nil {
			s.ids = ids
		}
	}
}

// WithStrict makes invariant violations panic instead of being repaired.
func WithStrict(strict bool) Option {
	return func(s *Store) { s.strict = strict }
}

// WithObserver registers fn to be called after every applied transition.
// fn receives a copy of the new history.
func WithObserver(fn func(Op, History)) Option {
	return func(s *Store) { s.observe = fn }
}

// Store owns the jar history of one session and persists it through a KV
// after every change. A Store is not safe for concurrent use; its owner
// serializes access.
type Store struct {
	history History
	kv      KV
	ids     IDSource
	log     Logger
	strict  bool
	observe func(Op, History)
}

// New builds a store seeded from kv. Missing, unreadable or corrupt state
// yields the empty default history; New never fails.
func New(ctx context.Context, kv KV, opts ...Option) *Store {
	s := &Store{
		kv:  kv,
		ids: UUIDSource{},
		log: nopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.history = s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) History {
	if s.kv == nil {
		return Default()
	}

	rawHistory, hasHistory, err := s.kv.Get(ctx, HistoryKey)
	if err != nil {
		s.log.Warnf("Could not read saved jar history, starting empty: %v", err)
		return Default()
	}
	rawIndex, hasIndex, err := s.kv.Get(ctx, IndexKey)
	if err != nil {
		s.log.Warnf("Could not read saved jar index, starting empty: %v", err)
		return Default()
	}

	if !hasHistory && !hasIndex {
		s.log.Debugf("No saved jar found, starting empty")
		return Default()
	}
	if !hasHistory || !hasIndex {
		s.log.Warnf("Incomplete saved jar state detected, resetting to default")
		return Default()
	}

	h, err := Decode(rawHistory, rawIndex)
	if err != nil {
		s.log.Warnf("Invalid saved jar state detected, resetting to default: %v", err)
		return Default()
	}
	s.log.Debugf("Loaded jar history with %d snapshots at index %d", h.Len(), h.Index)
	return h
}

// Current returns the active jar contents.
func (s *Store) Current() Snapshot {
	return s.history.Current()
}

// History returns a deep copy of the full history.
func (s *Store) History() History {
	return s.history.Clone()
}

func (s *Store) CanUndo() bool { return s.history.CanUndo() }

func (s *Store) CanRedo() bool { return s.history.CanRedo() }

// Push makes snap the current jar, discarding redo history. A snapshot with
// missing or repeated jar ids is a programming error: it panics in strict
// mode and is refused otherwise.
//
// The returned error reports a failed write; the transition itself has been
// applied.
func (s *Store) Push(ctx context.Context, snap Snapshot) error {
	if err := snap.validate(); err != nil {
		if s.strict {
			panic(fmt.Sprintf("jar: pushing invalid snapshot: %v", err))
		}
		s.log.Errorf("Refusing to push invalid snapshot: %v", err)
		return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	s.history.Push(snap)
	return s.commit(ctx, OpPush)
}

// Undo steps back one snapshot. It reports whether the cursor moved.
func (s *Store) Undo(ctx context.Context) (bool, error) {
	if !s.history.Undo() {
		return false, nil
	}
	return true, s.commit(ctx, OpUndo)
}

// Redo steps forward one snapshot. It reports whether the cursor moved.
func (s *Store) Redo(ctx context.Context) (bool, error) {
	if !s.history.Redo() {
		return false, nil
	}
	return true, s.commit(ctx, OpRedo)
}

// Add puts one fruit in the jar and returns the jar item created for it.
func (s *Store) Add(ctx context.Context, f fruit.Fruit) (fruit.JarFruit, error) {
	jf := f.InJar(s.ids.NewJarID(f))
	return jf, s.Push(ctx, s.history.Current().With(jf))
}

// AddAll puts every fruit in the jar as a single history entry. Adding
// nothing records nothing.
func (s *Store) AddAll(ctx context.Context, fs []fruit.Fruit) ([]fruit.JarFruit, error) {
	if len(fs) == 0 {
		return nil, nil
	}
	added := make([]fruit.JarFruit, 0, len(fs))
	for _, f := range fs {
		added = append(added, f.InJar(s.ids.NewJarID(f)))
	}
	return added, s.Push(ctx, s.history.Current().With(added...))
}

// Remove takes the item with jarID out of the jar.
func (s *Store) Remove(ctx context.Context, jarID string) error {
	next, ok := s.history.Current().Without(jarID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJarID, jarID)
	}
	return s.Push(ctx, next)
}

// RemoveAt takes the item at position i out of the jar.
func (s *Store) RemoveAt(ctx context.Context, i int) error {
	next, ok := s.history.Current().WithoutIndex(i)
	if !ok {
		return fmt.Errorf("%w: position %d", ErrIndexOutOfRange, i)
	}
	return s.Push(ctx, next)
}

// Clear empties the jar. Clearing an empty jar records nothing, which keeps
// any redo history intact.
func (s *Store) Clear(ctx context.Context) error {
	if len(s.history.Snapshots[s.history.Index]) == 0 {
		return nil
	}
	return s.Push(ctx, Snapshot{})
}

func (s *Store) commit(ctx context.Context, op Op) error {
	s.guard()
	if s.observe != nil {
		s.observe(op, s.history.Clone())
	}
	return s.save(ctx)
}

// guard enforces the history invariants after a transition.
func (s *Store) guard() {
	err := s.history.Validate()
	if err == nil {
		return
	}
	if s.strict {
		panic(fmt.Sprintf("jar: history invariant violated: %v", err))
	}
	s.log.Errorf("Jar history invariant violated, clamping: %v", err)
	s.history.clamp()
}

func (s *Store) save(ctx context.Context) error {
	if s.kv == nil {
		return nil
	}
	history, index, err := Encode(s.history)
	if err != nil {
		return err
	}
	if err := s.kv.SetMany(ctx, map[string]string{HistoryKey: history, IndexKey: index}); err != nil {
		return fmt.Errorf("saving jar: %w", err)
	}
	return nil
}
