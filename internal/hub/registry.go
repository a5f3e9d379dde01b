package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/scripty/hub-server-go/internal/errors"
)

// KeyVerifier reports whether a key presented in IDENTIFY matches the
// configured shared secret.
type KeyVerifier func(presented string) bool

type voiceRoute struct {
	clusterID    int64
	sessionID    string
	registeredAt time.Time
}

// Registry owns every live session and the process-wide voice channel
// route table.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	routes   map[int64]voiceRoute

	verify   KeyVerifier
	routeTTL time.Duration
	now      func() time.Time
}

func NewRegistry(verify KeyVerifier, routeTTL time.Duration) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		routes:   make(map[int64]voiceRoute),
		verify:   verify,
		routeTTL: routeTTL,
		now:      time.Now,
	}
}

// Open registers a new unauthorized session for conn.
func (r *Registry) Open(conn Conn) *Session {
	s := newSession(uuid.NewString(), conn, r.now())

	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()

	return s
}

// Authorize checks the presented key. An invalid key is always AUTH_FAILED,
// even on an already authorized session.
func (r *Registry) Authorize(s *Session, presented string) error {
	if presented == "" || !r.verify(presented) {
		return apperrors.AuthFailed()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authorized {
		return apperrors.AlreadyAuthorized()
	}
	s.authorized = true
	return nil
}

// RegisterVoiceChannels replaces the session's voice channel set and points
// each channel's route at clusterID. Routes this session owned for channels
// no longer listed are dropped.
func (r *Registry) RegisterVoiceChannels(s *Session, clusterID int64, vcIDs []int64) {
	now := r.now()

	next := make(map[int64]struct{}, len(vcIDs))
	for _, vc := range vcIDs {
		next[vc] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s.mu.Lock()
	previous := s.voiceChannels
	s.voiceChannels = next
	s.lastVCRegistrationAt = now
	s.mu.Unlock()

	for vc := range previous {
		if _, kept := next[vc]; kept {
			continue
		}
		if route, ok := r.routes[vc]; ok && route.sessionID == s.id {
			delete(r.routes, vc)
		}
	}
	for vc := range next {
		r.routes[vc] = voiceRoute{
			clusterID:    clusterID,
			sessionID:    s.id,
			registeredAt: now,
		}
	}
}

// ResolveCluster finds the cluster handling vcID. Routes owned by a session
// that is gone or unauthorized, or older than the refresh interval, do not
// count.
func (r *Registry) ResolveCluster(vcID int64) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	route, ok := r.routes[vcID]
	if !ok {
		return 0, apperrors.RouteNotFound(vcID)
	}
	owner, ok := r.sessions[route.sessionID]
	if !ok || !owner.Authorized() {
		return 0, apperrors.RouteNotFound(vcID)
	}
	if r.routeTTL > 0 && r.now().Sub(route.registeredAt) > r.routeTTL {
		return 0, apperrors.RouteNotFound(vcID)
	}
	return route.clusterID, nil
}

// Close removes the session and the routes it owns. Pending requests are
// not touched here.
func (r *Registry) Close(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s.mu.Lock()
	s.closed = true
	owned := s.voiceChannels
	s.mu.Unlock()

	for vc := range owned {
		if route, ok := r.routes[vc]; ok && route.sessionID == s.id {
			delete(r.routes, vc)
		}
	}
	delete(r.sessions, s.id)
}

// Get looks a session up by connection ID. Callers holding only an ID must
// expect the session to be gone.
func (r *Registry) Get(connectionID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[connectionID]
	return s, ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) AuthorizedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, s := range r.sessions {
		if s.Authorized() {
			n++
		}
	}
	return n
}

func (r *Registry) RouteCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.routes)
}
