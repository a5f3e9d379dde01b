package hub

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var ErrSessionClosed = errors.New("session closed")

// Conn is the write side of a client connection.
type Conn interface {
	Send(ctx context.Context, msg any) error
	RemoteAddr() string
}

// Session is the hub-side state of one live connection. Its mutable fields
// are guarded by mu; the registry takes its own lock before mu, never after.
type Session struct {
	id          string
	conn        Conn
	connectedAt time.Time

	mu                   sync.RWMutex
	authorized           bool
	closed               bool
	clusterID            *int64
	voiceChannels        map[int64]struct{}
	lastVCRegistrationAt time.Time
}

func newSession(id string, conn Conn, now time.Time) *Session {
	return &Session{
		id:            id,
		conn:          conn,
		connectedAt:   now,
		voiceChannels: make(map[int64]struct{}),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) RemoteAddr() string {
	return s.conn.RemoteAddr()
}

func (s *Session) ConnectedAt() time.Time {
	return s.connectedAt
}

func (s *Session) Authorized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authorized
}

func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// ClusterID returns the cluster this session last identified as.
func (s *Session) ClusterID() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.clusterID == nil {
		return 0, false
	}
	return *s.clusterID, true
}

func (s *Session) SetClusterID(clusterID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clusterID = &clusterID
}

// VoiceChannels returns the last registered voice channel IDs in ascending order.
func (s *Session) VoiceChannels() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int64, 0, len(s.voiceChannels))
	for vc := range s.voiceChannels {
		out = append(out, vc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Session) LastVCRegistrationAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastVCRegistrationAt
}

// Send writes msg to the connection unless the session has been closed.
func (s *Session) Send(ctx context.Context, msg any) error {
	if s.Closed() {
		return ErrSessionClosed
	}
	return s.conn.Send(ctx, msg)
}
