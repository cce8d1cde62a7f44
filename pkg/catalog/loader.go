// Package catalog loads the fruit catalog from an untrusted upstream, vets it
// with the fruit validator and falls back to a bundled catalog whenever the
// upstream is unreachable or sends something malformed.
package catalog

import (
	"context"
	_ "embed"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sw33tLie/fruitjar/pkg/fruit"
)

// FallbackNotice is the user-facing message shown when the fallback catalog
// is in use.
const FallbackNotice = "Failed to fetch fruits. Using fallback data."

// DefaultStaleTime is how long an upstream catalog is served from cache.
const DefaultStaleTime = 5 * time.Minute

const cacheKey = "catalog"

//go:embed fallback.json
var fallbackJSON []byte

var fallback = sync.OnceValues(func() ([]fruit.Fruit, error) {
	return fruit.ValidateCatalog(fallbackJSON)
})

// Fallback returns a copy of the bundled catalog.
func Fallback() []fruit.Fruit {
	fs, err := fallback()
	if err != nil {
		panic("catalog: bundled fallback is invalid: " + err.Error())
	}
	return append([]fruit.Fruit(nil), fs...)
}

// Origin tells where a loaded catalog came from.
type Origin string

const (
	OriginUpstream Origin = "upstream"
	OriginFallback Origin = "fallback"
)

// Result is the outcome of one Load. Err is set whenever Origin is
// OriginFallback and explains why the upstream catalog was not used.
type Result struct {
	Fruits []fruit.Fruit
	Origin Origin
	Err    error
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

type LoaderOption func(*Loader)

func WithLogger(l Logger) LoaderOption {
	return func(ld *Loader) {
		if l != nil {
			ld.log = l
		}
	}
}

// WithStaleTime sets how long upstream results are reused. Zero or less
// disables caching.
func WithStaleTime(d time.Duration) LoaderOption {
	return func(ld *Loader) { ld.stale = d }
}

// WithLoadHook registers fn to be called with the origin of every load,
// cached loads included.
func WithLoadHook(fn func(Origin)) LoaderOption {
	return func(ld *Loader) { ld.onLoad = fn }
}

// Loader turns a Source into a catalog that is always safe to use.
type Loader struct {
	src    Source
	log    Logger
	stale  time.Duration
	cache  *expirable.LRU[string, []fruit.Fruit]
	onLoad func(Origin)
}

func NewLoader(src Source, opts ...LoaderOption) *Loader {
	ld := &Loader{
		src:   src,
		log:   nopLogger{},
		stale: DefaultStaleTime,
	}
	for _, opt := range opts {
		opt(ld)
	}
	if ld.stale > 0 {
		ld.cache = expirable.NewLRU[string, []fruit.Fruit](1, nil, ld.stale)
	}
	return ld
}

// Load returns the upstream catalog when it can be fetched and validated,
// and the fallback catalog otherwise. Load never fails.
func (ld *Loader) Load(ctx context.Context) Result {
	if ld.cache != nil {
		if fs, ok := ld.cache.Get(cacheKey); ok {
			ld.log.Debugf("Serving cached catalog (%d fruits)", len(fs))
			return ld.done(Result{Fruits: append([]fruit.Fruit(nil), fs...), Origin: OriginUpstream})
		}
	}

	fs, err := ld.fetch(ctx)
	if err != nil {
		ld.log.Warnf("%s (%v)", FallbackNotice, err)
		return ld.done(Result{Fruits: Fallback(), Origin: OriginFallback, Err: err})
	}

	ld.log.Infof("Loaded %d fruits from upstream catalog", len(fs))
	if ld.cache != nil {
		ld.cache.Add(cacheKey, fs)
	}
	return ld.done(Result{Fruits: append([]fruit.Fruit(nil), fs...), Origin: OriginUpstream})
}

// Invalidate drops any cached upstream catalog.
func (ld *Loader) Invalidate() {
	if ld.cache != nil {
		ld.cache.Purge()
	}
}

func (ld *Loader) fetch(ctx context.Context) ([]fruit.Fruit, error) {
	if ld.src == nil {
		return nil, ErrNoURL
	}
	payload, err := ld.src.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return fruit.ValidateCatalog(payload)
}

func (ld *Loader) done(r Result) Result {
	if ld.onLoad != nil {
		ld.onLoad(r.Origin)
	}
	return r
}
