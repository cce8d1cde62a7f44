package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/sw33tLie/fruitjar/internal/metrics"
	"github.com/sw33tLie/fruitjar/internal/utils"
	"github.com/sw33tLie/fruitjar/pkg/catalog"
	"github.com/sw33tLie/fruitjar/pkg/jar"
)

// Server exposes one jar and the catalog over JSON. The jar store is not
// safe for concurrent use, so every jar handler runs under mu.
type Server struct {
	Username string
	Password string

	mu     sync.Mutex
	store  *jar.Store
	loader *catalog.Loader
}

func New(store *jar.Store, loader *catalog.Loader, user, pass string) *Server {
	return &Server{
		Username: user,
		Password: pass,
		store:    store,
		loader:   loader,
	}
}

// Handler builds the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Catalog
	mux.HandleFunc("GET /api/fetch-fruits", s.basicAuth(s.handleFetchFruits))

	// Jar
	mux.HandleFunc("GET /api/jar", s.basicAuth(s.handleJar))
	mux.HandleFunc("POST /api/jar/fruits", s.basicAuth(s.handleAddFruits))
	mux.HandleFunc("POST /api/jar/groups", s.basicAuth(s.handleAddGroup))
	mux.HandleFunc("DELETE /api/jar/fruits/{jarId}", s.basicAuth(s.handleRemoveFruit))
	mux.HandleFunc("DELETE /api/jar", s.basicAuth(s.handleClear))
	mux.HandleFunc("POST /api/jar/undo", s.basicAuth(s.handleUndo))
	mux.HandleFunc("POST /api/jar/redo", s.basicAuth(s.handleRedo))
	mux.HandleFunc("GET /api/jar/totals", s.basicAuth(s.handleTotals))
	mux.HandleFunc("GET /api/jar/groups", s.basicAuth(s.handleGroups))
	mux.HandleFunc("GET /api/jar/distribution", s.basicAuth(s.handleDistribution))

	mux.Handle("GET /metrics", metrics.Handler())

	return metrics.InstrumentHandler(mux)
}

func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	utils.Log.Infof("Starting server on %s", addr)
	return srv.ListenAndServe()
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
