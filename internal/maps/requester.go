// Package maps manages interactive map creation against the processing
// backend. Map builds are the most expensive upstream call, so each owner
// gets single-flight protection (a second request while one is running is
// rejected) and fingerprint de-duplication (identical parameters reuse the
// existing map without a network call).
package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/terravue/terravue/internal/processor"
)

// ErrRequestInFlight is returned when an owner already has a map build
// running. The client retries after the first build settles.
var ErrRequestInFlight = requesterError("a map request is already in progress")

type requesterError string

func (e requesterError) Error() string {
	return string(e)
}

// Creator is the slice of the processing backend the requester needs.
type Creator interface {
	CreateMap(ctx context.Context, params processor.MapParams) (string, error)
}

// View is a built map as served to clients.
type View struct {
	URL         string    `json:"mapUrl"`
	Generation  int       `json:"generation"`
	Cached      bool      `json:"cached"`
	CreatedAt   time.Time `json:"createdAt"`
	fingerprint string
}

// ownerState tracks one owner's in-flight flag and last built map.
type ownerState struct {
	inFlight bool
	view     *View
}

// Requester builds maps through a backend, de-duplicating per owner.
type Requester struct {
	backend    Creator
	staticBase string
	logger     *slog.Logger

	mu     sync.Mutex
	states map[string]*ownerState
}

// NewRequester creates a map requester. staticBase, when set, replaces the
// host of backend-relative /static/ URLs so browsers can reach them.
func NewRequester(backend Creator, staticBase string) *Requester {
	return &Requester{
		backend:    backend,
		staticBase: strings.TrimRight(staticBase, "/"),
		logger:     slog.Default(),
		states:     make(map[string]*ownerState),
	}
}

// WithLogger sets a custom logger for the requester.
func (r *Requester) WithLogger(logger *slog.Logger) *Requester {
	r.logger = logger
	return r
}

// Request builds a map for the owner, or reuses the current one when the
// parameters have not changed since it was built.
func (r *Requester) Request(ctx context.Context, owner string, params processor.MapParams) (*View, error) {
	fp, err := fingerprint(params)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	st := r.state(owner)
	if st.inFlight {
		r.mu.Unlock()
		return nil, ErrRequestInFlight
	}
	if st.view != nil && st.view.fingerprint == fp {
		cached := *st.view
		cached.Cached = true
		r.mu.Unlock()

		r.logger.DebugContext(ctx, "map request deduplicated",
			slog.String("owner", owner),
			slog.Int("generation", cached.Generation),
		)
		return &cached, nil
	}
	st.inFlight = true
	r.mu.Unlock()

	return r.build(ctx, owner, params, fp)
}

// Retry forces a rebuild even when the parameters match the current map,
// for maps that came back broken. Single-flight still applies.
func (r *Requester) Retry(ctx context.Context, owner string, params processor.MapParams) (*View, error) {
	fp, err := fingerprint(params)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	st := r.state(owner)
	if st.inFlight {
		r.mu.Unlock()
		return nil, ErrRequestInFlight
	}
	st.inFlight = true
	r.mu.Unlock()

	return r.build(ctx, owner, params, fp)
}

// Current returns the owner's map, or nil when none has been built.
func (r *Requester) Current(owner string) *View {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.states[owner]
	if !ok || st.view == nil {
		return nil
	}
	view := *st.view
	return &view
}

// Reset discards the owner's map state.
func (r *Requester) Reset(owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.states, owner)
}

// build performs the upstream call. The lock is not held across it; the
// owner's in-flight flag keeps concurrent builds out.
func (r *Requester) build(ctx context.Context, owner string, params processor.MapParams, fp string) (*View, error) {
	rawURL, err := r.backend.CreateMap(ctx, params)

	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.state(owner)
	st.inFlight = false
	if err != nil {
		return nil, fmt.Errorf("map creation failed: %w", err)
	}

	generation := 1
	if st.view != nil {
		generation = st.view.Generation + 1
	}
	view := &View{
		URL:         r.resolveURL(rawURL),
		Generation:  generation,
		CreatedAt:   time.Now().UTC(),
		fingerprint: fp,
	}
	st.view = view

	r.logger.InfoContext(ctx, "map created",
		slog.String("owner", owner),
		slog.Int("generation", generation),
	)

	out := *view
	return &out, nil
}

// state returns the owner's state, creating it. Callers hold the lock.
func (r *Requester) state(owner string) *ownerState {
	st, ok := r.states[owner]
	if !ok {
		st = &ownerState{}
		r.states[owner] = st
	}
	return st
}

// resolveURL makes backend-relative static paths reachable from outside.
func (r *Requester) resolveURL(rawURL string) string {
	if r.staticBase != "" && strings.HasPrefix(rawURL, "/static/") {
		return r.staticBase + rawURL
	}
	return rawURL
}

// fingerprint derives a stable digest of the map parameters. Struct field
// order and sorted map keys make the JSON encoding canonical.
func fingerprint(params processor.MapParams) (string, error) {
	encoded, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint map parameters: %w", err)
	}
	h := fnv.New64a()
	h.Write(encoded)
	return fmt.Sprintf("%016x", h.Sum64()), nil
}
