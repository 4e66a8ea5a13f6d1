package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"backpro/internal/diagnostics"
	"backpro/internal/generation"
	"backpro/internal/ids"
	"backpro/internal/storage"
	"backpro/internal/upload"
)

// Workspace is everything one browser sees: two upload slots and the
// generation state built on them.
type Workspace struct {
	ID         string
	Uploads    *upload.Surface
	Generation *generation.Orchestrator

	mu       sync.Mutex
	lastSeen time.Time
}

func (w *Workspace) touch(now time.Time) {
	w.mu.Lock()
	w.lastSeen = now
	w.mu.Unlock()
}

func (w *Workspace) LastSeen() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeen
}

type Registry struct {
	mu         sync.Mutex
	workspaces map[string]*Workspace

	store     storage.Store
	encoder   generation.Encoder
	generator generation.Generator
	recorder  diagnostics.Recorder
	log       zerolog.Logger
	now       func() time.Time
}

func NewRegistry(store storage.Store, enc generation.Encoder, gen generation.Generator, rec diagnostics.Recorder, log zerolog.Logger) *Registry {
	return &Registry{
		workspaces: make(map[string]*Workspace),
		store:      store,
		encoder:    enc,
		generator:  gen,
		recorder:   rec,
		log:        log,
		now:        time.Now,
	}
}

// Acquire returns the workspace for id, creating a new one under a fresh id
// when id is empty or unknown. The second result reports creation.
func (r *Registry) Acquire(id string) (*Workspace, bool) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if ws, ok := r.workspaces[id]; ok && id != "" {
		ws.touch(now)
		return ws, false
	}

	id = ids.New()
	log := r.log.With().Str("session", id).Logger()
	uploads := upload.NewSurface(r.store, log)
	ws := &Workspace{
		ID:      id,
		Uploads: uploads,
		Generation: generation.NewOrchestrator(generation.Deps{
			Session:   id,
			Slots:     uploads,
			Encoder:   r.encoder,
			Generator: r.generator,
			Recorder:  r.recorder,
			Logger:    log,
		}),
		lastSeen: now,
	}
	r.workspaces[id] = ws
	return ws, true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}

// Sweep resets and forgets workspaces not seen for longer than idle, which
// releases their previews. It returns how many were removed.
func (r *Registry) Sweep(ctx context.Context, idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	var stale []*Workspace
	for id, ws := range r.workspaces {
		if ws.LastSeen().Before(cutoff) {
			stale = append(stale, ws)
			delete(r.workspaces, id)
		}
	}
	r.mu.Unlock()

	for _, ws := range stale {
		if err := ws.Generation.Reset(ctx); err != nil {
			r.log.Warn().Err(err).Str("session", ws.ID).Msg("reset idle workspace failed")
		}
	}
	if len(stale) > 0 {
		r.log.Info().Int("removed", len(stale)).Msg("idle workspaces swept")
	}
	return len(stale)
}

// Close releases every workspace.
func (r *Registry) Close(ctx context.Context) {
	r.mu.Lock()
	all := make([]*Workspace, 0, len(r.workspaces))
	for _, ws := range r.workspaces {
		all = append(all, ws)
	}
	r.workspaces = make(map[string]*Workspace)
	r.mu.Unlock()

	for _, ws := range all {
		if err := ws.Generation.Reset(ctx); err != nil {
			r.log.Warn().Err(err).Str("session", ws.ID).Msg("release workspace failed")
		}
	}
}
