package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sw33tLie/fruitjar/internal/utils"
	"github.com/sw33tLie/fruitjar/pkg/aggregate"
	"github.com/sw33tLie/fruitjar/pkg/catalog"
	"github.com/sw33tLie/fruitjar/pkg/fruit"
	"github.com/sw33tLie/fruitjar/pkg/jar"
)

// JarView is the jar state returned by every jar endpoint.
type JarView struct {
	Fruits    []fruit.JarFruit `json:"fruits"`
	Index     int              `json:"index"`
	Snapshots int              `json:"snapshots"`
	CanUndo   bool             `json:"canUndo"`
	CanRedo   bool             `json:"canRedo"`
	Added     []fruit.JarFruit `json:"added,omitempty"`
	Moved     *bool            `json:"moved,omitempty"`
	Warning   string           `json:"warning,omitempty"`
}

type AddFruitsRequest struct {
	ID  *int  `json:"id"`
	IDs []int `json:"ids"`
}

type AddGroupRequest struct {
	By  string `json:"by"`
	Key string `json:"key"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleFetchFruits(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") != "" {
		s.loader.Invalidate()
	}
	res := s.loader.Load(r.Context())
	w.Header().Set("X-Catalog-Origin", string(res.Origin))
	if res.Err != nil {
		w.Header().Set("X-Catalog-Notice", catalog.FallbackNotice)
	}
	writeJSON(w, http.StatusOK, res.Fruits)
}

// view must be called with mu held.
func (s *Server) view() JarView {
	h := s.store.History()
	return JarView{
		Fruits:    s.store.Current(),
		Index:     h.Index,
		Snapshots: h.Len(),
		CanUndo:   s.store.CanUndo(),
		CanRedo:   s.store.CanRedo(),
	}
}

// respond writes the jar view after a transition. A persistence error does
// not undo the transition, so it is reported as a warning.
func (s *Server) respond(w http.ResponseWriter, status int, v JarView, err error) {
	if err != nil {
		if errors.Is(err, jar.ErrInvalidSnapshot) {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		utils.Log.Errorf("Jar change applied but not saved: %v", err)
		v.Warning = err.Error()
	}
	writeJSON(w, status, v)
}

func (s *Server) handleJar(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.view())
}

func (s *Server) handleAddFruits(w http.ResponseWriter, r *http.Request) {
	var req AddFruitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ids := req.IDs
	if req.ID != nil {
		ids = append([]int{*req.ID}, ids...)
	}
	if len(ids) == 0 {
		http.Error(w, "no fruit ids given", http.StatusBadRequest)
		return
	}

	fruits := s.loader.Load(r.Context()).Fruits
	picked := make([]fruit.Fruit, 0, len(ids))
	for _, id := range ids {
		f, err := catalog.FindByID(fruits, id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		picked = append(picked, f)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	added, err := s.store.AddAll(r.Context(), picked)
	v := s.view()
	v.Added = added
	s.respond(w, http.StatusCreated, v, err)
}

func (s *Server) handleAddGroup(w http.ResponseWriter, r *http.Request) {
	var req AddGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	mode, err := fruit.ParseGroupMode(req.By)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	groups := aggregate.GroupBy(s.loader.Load(r.Context()).Fruits, mode)
	key := req.Key
	if mode == fruit.GroupNone {
		key = aggregate.AllFruitsLabel
	}
	members, ok := groups.Get(key)
	if !ok {
		http.Error(w, "no such group: "+req.Key, http.StatusNotFound)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	added, err := s.store.AddAll(r.Context(), members)
	v := s.view()
	v.Added = added
	s.respond(w, http.StatusCreated, v, err)
}

func (s *Server) handleRemoveFruit(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.store.Remove(r.Context(), r.PathValue("jarId"))
	if errors.Is(err, jar.ErrUnknownJarID) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.respond(w, http.StatusOK, s.view(), err)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.store.Clear(r.Context())
	s.respond(w, http.StatusOK, s.view(), err)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	moved, err := s.store.Undo(r.Context())
	v := s.view()
	v.Moved = &moved
	s.respond(w, http.StatusOK, v, err)
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	moved, err := s.store.Redo(r.Context())
	v := s.view()
	v.Moved = &moved
	s.respond(w, http.StatusOK, v, err)
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	current := s.store.Current()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, aggregate.SumNutrition(current))
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	by := r.URL.Query().Get("by")
	if by == "" {
		by = string(fruit.GroupNone)
	}
	mode, err := fruit.ParseGroupMode(by)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	current := s.store.Current()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, aggregate.GroupBy([]fruit.JarFruit(current), mode))
}

func (s *Server) handleDistribution(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	current := s.store.Current()
	s.mu.Unlock()

	dist := aggregate.Distribution(current)
	if dist == nil {
		dist = []aggregate.NameCount{}
	}
	writeJSON(w, http.StatusOK, dist)
}
