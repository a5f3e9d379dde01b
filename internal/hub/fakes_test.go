package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/scripty/hub-server-go/internal/model"
	"github.com/scripty/hub-server-go/internal/protocol"
)

const testKey = "correct-horse-battery-staple"

func verifyTestKey(presented string) bool {
	return presented == testKey
}

// fakeConn records every message sent to it as decoded JSON.
type fakeConn struct {
	mu   sync.Mutex
	msgs []map[string]any
}

func (c *fakeConn) Send(_ context.Context, msg any) error {
	raw, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	c.mu.Lock()
	c.msgs = append(c.msgs, decoded)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) RemoteAddr() string {
	return "192.0.2.1:5000"
}

func (c *fakeConn) messages() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, len(c.msgs))
	copy(out, c.msgs)
	return out
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	c.msgs = nil
	c.mu.Unlock()
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type mockLookup struct {
	mock.Mock
}

func (m *mockLookup) FetchUser(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockLookup) FetchGuild(ctx context.Context, guildID int64) (*model.Guild, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Guild), args.Error(1)
}

func (m *mockLookup) FetchChannel(ctx context.Context, channelID int64, voice bool) (*model.Channel, error) {
	args := m.Called(ctx, channelID, voice)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Channel), args.Error(1)
}

type transcribeResult struct {
	transcription *model.Transcription
	err           error
}

// fakeTranscriber blocks each call until a result is pushed or ctx ends.
type fakeTranscriber struct {
	started chan model.TranscriptionRequest
	results chan transcribeResult
}

func newFakeTranscriber() *fakeTranscriber {
	return &fakeTranscriber{
		started: make(chan model.TranscriptionRequest, 16),
		results: make(chan transcribeResult, 16),
	}
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, req model.TranscriptionRequest) (*model.Transcription, error) {
	f.started <- req
	select {
	case r := <-f.results:
		return r.transcription, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type countWrite struct {
	stat      string
	clusterID int64
	count     int64
}

type fakeStats struct {
	mu     sync.Mutex
	writes []countWrite
	err    error
}

func (f *fakeStats) RecordServerCount(_ context.Context, clusterID int64, count int64) error {
	return f.record("servers", clusterID, count)
}

func (f *fakeStats) RecordUserCount(_ context.Context, clusterID int64, count int64) error {
	return f.record("users", clusterID, count)
}

func (f *fakeStats) record(stat string, clusterID int64, count int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, countWrite{stat: stat, clusterID: clusterID, count: count})
	return f.err
}

func (f *fakeStats) recorded() []countWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]countWrite, len(f.writes))
	copy(out, f.writes)
	return out
}

type fakeLimiter struct {
	allow bool
}

func (f *fakeLimiter) AllowTranscription(context.Context, int64) bool {
	return f.allow
}
