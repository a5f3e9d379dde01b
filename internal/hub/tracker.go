package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/scripty/hub-server-go/internal/errors"
	"github.com/scripty/hub-server-go/internal/protocol"
)

// Kind identifies which external collaborator a pending request waits on.
type Kind string

const (
	KindTranscribe   Kind = "TRANSCRIBE"
	KindFetchUser    Kind = "FETCH_USER"
	KindFetchGuild   Kind = "FETCH_GUILD"
	KindFetchChannel Kind = "FETCH_CHANNEL"
)

// Outcome is how a pending request ended.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeNotFound Outcome = "not_found"
	OutcomeFailure  Outcome = "failure"
	OutcomeTimeout  Outcome = "timeout"
	OutcomeDropped  Outcome = "dropped"
)

// Key is unique per originating connection: two clusters may use the same
// nonce for the same kind at once.
type Key struct {
	ConnectionID string
	Kind         Kind
	Nonce        int64
}

type PendingRequest struct {
	Key
	ReplyCode protocol.Opcode
	ClusterID int64
	VCID      int64
	Deadline  time.Time
	CreatedAt time.Time
}

// Result carries what an adapter produced. Record is the fetched row for
// lookups; Transcript and RawData are set for transcriptions. Err explains
// OutcomeFailure.
type Result struct {
	Outcome    Outcome
	Record     any
	Transcript string
	RawData    json.RawMessage
	Err        error
}

// SessionLookup resolves a connection ID to its session, if still open.
type SessionLookup interface {
	Get(connectionID string) (*Session, bool)
}

// Tracker holds every outstanding request. An entry is removed exactly once,
// under mu, by whichever of Resolve, Sweep or DropConnection gets to it
// first.
type Tracker struct {
	mu      sync.Mutex
	pending map[Key]*PendingRequest

	sessions SessionLookup
	metrics  Metrics
	now      func() time.Time
}

func NewTracker(sessions SessionLookup, metrics Metrics) *Tracker {
	if metrics == nil {
		metrics = NopMetrics()
	}
	return &Tracker{
		pending:  make(map[Key]*PendingRequest),
		sessions: sessions,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Register adds req, failing with DUPLICATE_CORRELATION while an entry with
// the same key is unresolved.
func (t *Tracker) Register(req PendingRequest) error {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = t.now()
	}

	t.mu.Lock()
	if _, exists := t.pending[req.Key]; exists {
		t.mu.Unlock()
		return apperrors.DuplicateCorrelation(string(req.Kind), req.Nonce)
	}
	t.pending[req.Key] = &req
	t.mu.Unlock()

	t.metrics.PendingRegistered(req.Kind)
	return nil
}

// Resolve completes the entry for key with result and replies on the
// originating connection if it is still open. It returns false when no entry
// was pending, in which case nothing is sent.
func (t *Tracker) Resolve(ctx context.Context, key Key, result Result) bool {
	t.mu.Lock()
	req, ok := t.pending[key]
	if ok {
		delete(t.pending, key)
	}
	t.mu.Unlock()

	if !ok {
		log.Debug().
			Str("connId", key.ConnectionID).
			Str("kind", string(key.Kind)).
			Int64("nonce", key.Nonce).
			Msg("late resolution for unknown pending request, ignoring")
		return false
	}

	t.deliver(ctx, req, result)
	return true
}

// Sweep resolves every entry past its deadline with a timeout outcome.
func (t *Tracker) Sweep(ctx context.Context) (int64, error) {
	now := t.now()

	var expired []*PendingRequest
	t.mu.Lock()
	for key, req := range t.pending {
		if !now.Before(req.Deadline) {
			expired = append(expired, req)
			delete(t.pending, key)
		}
	}
	t.mu.Unlock()

	for _, req := range expired {
		t.deliver(ctx, req, Result{
			Outcome: OutcomeTimeout,
			Err:     apperrors.Timeout(string(req.Kind)),
		})
	}
	return int64(len(expired)), nil
}

// DropConnection discards the closed connection's pending lookups. Its
// transcriptions stay pending: the job cannot be recalled, so it runs to
// completion and the reply is dropped then.
func (t *Tracker) DropConnection(connectionID string) int {
	var dropped []*PendingRequest

	t.mu.Lock()
	for key, req := range t.pending {
		if key.ConnectionID == connectionID && key.Kind != KindTranscribe {
			dropped = append(dropped, req)
			delete(t.pending, key)
		}
	}
	t.mu.Unlock()

	now := t.now()
	for _, req := range dropped {
		t.metrics.PendingResolved(req.Kind, OutcomeDropped, now.Sub(req.CreatedAt))
	}
	return len(dropped)
}

func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

func (t *Tracker) Pending(key Key) (PendingRequest, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	req, ok := t.pending[key]
	if !ok {
		return PendingRequest{}, false
	}
	return *req, true
}

func (t *Tracker) deliver(ctx context.Context, req *PendingRequest, result Result) {
	t.metrics.PendingResolved(req.Kind, result.Outcome, t.now().Sub(req.CreatedAt))

	logger := log.With().
		Str("connId", req.ConnectionID).
		Str("kind", string(req.Kind)).
		Int64("nonce", req.Nonce).
		Str("outcome", string(result.Outcome)).
		Logger()

	session, ok := t.sessions.Get(req.ConnectionID)
	if !ok {
		logger.Debug().Msg("originating session closed, dropping reply")
		return
	}

	if err := session.Send(ctx, buildReply(req, result)); err != nil {
		logger.Warn().Err(err).Msg("failed to deliver reply")
		return
	}
	logger.Debug().Msg("pending request resolved")
}

func buildReply(req *PendingRequest, result Result) any {
	if req.Kind == KindTranscribe {
		reply := protocol.TTSAPIResponse{
			Code:  req.ReplyCode,
			Nonce: req.Nonce,
			VCID:  req.VCID,
		}
		switch result.Outcome {
		case OutcomeSuccess:
			transcript := result.Transcript
			reply.Transcript = &transcript
			reply.RawData = result.RawData
		case OutcomeFailure:
			reply.Error = errorMessage(result.Err)
		}
		return reply
	}

	reply := protocol.FetchResponse{
		Code:  req.ReplyCode,
		Nonce: req.Nonce,
	}
	switch result.Outcome {
	case OutcomeSuccess:
		reply.Status = protocol.FetchStatusOK
		reply.Data = result.Record
	case OutcomeNotFound:
		reply.Status = protocol.FetchStatusNotFound
	case OutcomeTimeout:
		reply.Status = protocol.FetchStatusTimeout
	default:
		reply.Status = protocol.FetchStatusError
		reply.Error = errorMessage(result.Err)
	}
	return reply
}

func errorMessage(err error) string {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr.Message
	}
	return "internal error"
}
