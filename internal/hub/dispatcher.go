package hub

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/scripty/hub-server-go/internal/audit"
	"github.com/scripty/hub-server-go/internal/config"
	apperrors "github.com/scripty/hub-server-go/internal/errors"
	"github.com/scripty/hub-server-go/internal/model"
	"github.com/scripty/hub-server-go/internal/protocol"
)

type DispatcherConfig struct {
	Registry *Registry
	Tracker  *Tracker

	Lookup      Lookup
	Transcriber Transcriber
	Stats       StatsSink
	// Limiter and Audio are optional.
	Limiter TranscriptionLimiter
	Audio   AudioValidator

	FetchTimeout      time.Duration
	TranscribeTimeout time.Duration
	SampleRate        int

	Metrics Metrics
}

// Dispatcher runs the per-session opcode state machine. Handle is called
// sequentially by each connection's read loop; adapter calls it starts run
// in their own goroutines, bound to the dispatcher's lifetime rather than
// the connection's.
type Dispatcher struct {
	cfg     DispatcherConfig
	metrics Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NopMetrics()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		cfg:     cfg,
		metrics: metrics,
		ctx:     ctx,
		cancel:  cancel,
		now:     time.Now,
	}
}

// Close stops accepting adapter results and waits for in-flight adapter
// calls to return.
func (d *Dispatcher) Close() {
	d.cancel()
	d.wg.Wait()
}

// Handle processes one inbound message for s. A non-nil error means the
// connection must be closed; every other failure has already been answered
// in-band.
func (d *Dispatcher) Handle(ctx context.Context, s *Session, raw []byte) error {
	env, err := protocol.Decode(raw)
	if err != nil {
		d.finish(ctx, s, env, err)
		return nil
	}

	if env.Code == protocol.OpIdentify {
		return d.identify(ctx, s, env)
	}

	if !env.Code.IsClientOpcode() {
		d.finish(ctx, s, env, apperrors.UnknownOpcode(int(env.Code)))
		return nil
	}

	if !s.Authorized() {
		audit.Log(ctx, audit.Event{
			Type:         audit.EventUnauthorizedOpcode,
			ConnectionID: s.ID(),
			IP:           s.RemoteAddr(),
			Details:      map[string]interface{}{"opcode": env.Code.String()},
		})
		d.finish(ctx, s, env, apperrors.Unauthorized("IDENTIFY must be sent first"))
		return nil
	}

	if env.Cluster != nil {
		s.SetClusterID(*env.Cluster)
	}

	switch env.Code {
	case protocol.OpServerCount:
		err = d.recordCount(ctx, s, env, "servers", d.cfg.Stats.RecordServerCount)
	case protocol.OpUserCount:
		err = d.recordCount(ctx, s, env, "users", d.cfg.Stats.RecordUserCount)
	case protocol.OpRegisterVoiceChannels:
		err = d.registerVoiceChannels(s, env)
	case protocol.OpCallTTSAPI:
		err = d.callTTSAPI(ctx, s, env)
	case protocol.OpFetchUser:
		err = d.fetch(s, env, KindFetchUser, protocol.OpUserResponse, env.UserID, "user_id",
			func(ctx context.Context, id int64) (any, error) {
				user, err := d.cfg.Lookup.FetchUser(ctx, id)
				return record(user, err)
			})
	case protocol.OpFetchGuild:
		err = d.fetch(s, env, KindFetchGuild, protocol.OpGuildResponse, env.GuildID, "guild_id",
			func(ctx context.Context, id int64) (any, error) {
				guild, err := d.cfg.Lookup.FetchGuild(ctx, id)
				return record(guild, err)
			})
	case protocol.OpFetchChannel:
		replyCode := protocol.OpChannelResponse
		if env.Voice {
			replyCode = protocol.OpVoiceChannelResponse
		}
		voice := env.Voice
		err = d.fetch(s, env, KindFetchChannel, replyCode, env.ChannelID, "channel_id",
			func(ctx context.Context, id int64) (any, error) {
				channel, err := d.cfg.Lookup.FetchChannel(ctx, id, voice)
				return record(channel, err)
			})
	}

	d.finish(ctx, s, env, err)
	return nil
}

func (d *Dispatcher) identify(ctx context.Context, s *Session, env *protocol.Envelope) error {
	presented := ""
	if env.Auth != nil {
		presented = *env.Auth
	}

	err := d.cfg.Registry.Authorize(s, presented)
	if apperrors.GetCode(err) == apperrors.ErrCodeAlreadyAuthorized {
		d.finish(ctx, s, env, err)
		return nil
	}
	if err != nil {
		audit.Log(ctx, audit.Event{
			Type:         audit.EventIdentifyFailure,
			ConnectionID: s.ID(),
			ClusterID:    env.Cluster,
			IP:           s.RemoteAddr(),
		})
		d.metrics.MessageHandled(env.Code.String(), string(apperrors.ErrCodeAuthFailed))
		return err
	}

	if env.Cluster != nil {
		s.SetClusterID(*env.Cluster)
	}
	d.metrics.SessionAuthorized()
	audit.Log(ctx, audit.Event{
		Type:         audit.EventIdentifySuccess,
		ConnectionID: s.ID(),
		ClusterID:    env.Cluster,
		IP:           s.RemoteAddr(),
	})

	if err := s.Send(ctx, protocol.NewAuthorized()); err != nil {
		log.Warn().Err(err).Str("connId", s.ID()).Msg("failed to send AUTHORIZED")
	}
	d.metrics.MessageHandled(env.Code.String(), "")
	return nil
}

// finish records the message outcome and answers err in-band.
func (d *Dispatcher) finish(ctx context.Context, s *Session, env *protocol.Envelope, err error) {
	opcode := "UNDECODED"
	if env != nil {
		opcode = env.Code.String()
	}
	if err == nil {
		d.metrics.MessageHandled(opcode, "")
		return
	}

	code := apperrors.GetCode(err)
	d.metrics.MessageHandled(opcode, string(code))

	logEvent := log.Debug()
	if code == apperrors.ErrCodeInternal {
		logEvent = log.Error()
	}
	logEvent.Err(err).Str("connId", s.ID()).Str("opcode", opcode).Msg("message rejected")

	if sendErr := s.Send(ctx, protocol.NewErrorReply(err, env)); sendErr != nil {
		log.Warn().Err(sendErr).Str("connId", s.ID()).Msg("failed to send error reply")
	}
}

// clusterFor prefers the cluster named in the message, then the one the
// session last identified as.
func clusterFor(s *Session, env *protocol.Envelope) (int64, error) {
	if env.Cluster != nil {
		return *env.Cluster, nil
	}
	if id, ok := s.ClusterID(); ok {
		return id, nil
	}
	return 0, apperrors.MissingRequired("cluster")
}

type countRecorder func(ctx context.Context, clusterID int64, count int64) error

func (d *Dispatcher) recordCount(ctx context.Context, s *Session, env *protocol.Envelope, stat string, recordFn countRecorder) error {
	clusterID, err := clusterFor(s, env)
	if err != nil {
		return err
	}
	if env.Count == nil {
		return apperrors.MissingRequired("count")
	}
	if *env.Count < 0 {
		return apperrors.InvalidInput("count", "must not be negative")
	}

	d.metrics.ClusterCount(stat, clusterID, *env.Count)

	writeCtx, cancel := context.WithTimeout(ctx, config.StatsWriteTimeout)
	defer cancel()
	if err := recordFn(writeCtx, clusterID, *env.Count); err != nil {
		// Counts are resent hourly; a lost update is not worth an error reply.
		log.Warn().
			Err(err).
			Int64("cluster", clusterID).
			Str("stat", stat).
			Msg("failed to record cluster count")
	}
	return nil
}

func (d *Dispatcher) registerVoiceChannels(s *Session, env *protocol.Envelope) error {
	clusterID, err := clusterFor(s, env)
	if err != nil {
		return err
	}
	if !env.HasVCs {
		return apperrors.MissingRequired("vcs")
	}

	d.cfg.Registry.RegisterVoiceChannels(s, clusterID, env.VCs)

	log.Debug().
		Str("connId", s.ID()).
		Int64("cluster", clusterID).
		Int("count", len(env.VCs)).
		Msg("voice channels registered")
	return nil
}

func (d *Dispatcher) callTTSAPI(ctx context.Context, s *Session, env *protocol.Envelope) error {
	if env.Nonce == nil {
		return apperrors.MissingRequired("nonce")
	}
	if env.VCID == nil {
		return apperrors.MissingRequired("vc_id")
	}
	if len(env.Data) == 0 {
		return apperrors.MissingRequired("data")
	}
	if d.cfg.Audio != nil {
		if err := d.cfg.Audio.ValidateAudio(env.Data); err != nil {
			return err
		}
	}

	var clusterID int64
	if env.Cluster != nil {
		clusterID = *env.Cluster
	} else {
		resolved, err := d.cfg.Registry.ResolveCluster(*env.VCID)
		if err != nil {
			return err
		}
		clusterID = resolved
	}

	if d.cfg.Limiter != nil && !d.cfg.Limiter.AllowTranscription(ctx, clusterID) {
		return apperrors.RateLimitExceeded()
	}

	now := d.now()
	req := PendingRequest{
		Key:       Key{ConnectionID: s.ID(), Kind: KindTranscribe, Nonce: *env.Nonce},
		ReplyCode: protocol.OpTTSAPIResponse,
		ClusterID: clusterID,
		VCID:      *env.VCID,
		Deadline:  now.Add(d.cfg.TranscribeTimeout),
		CreatedAt: now,
	}
	if err := d.cfg.Tracker.Register(req); err != nil {
		return err
	}

	job := model.TranscriptionRequest{
		Audio:      env.Data,
		SampleRate: d.cfg.SampleRate,
		VCID:       req.VCID,
		ClusterID:  clusterID,
		Nonce:      req.Nonce,
	}

	log.Info().
		Str("connId", s.ID()).
		Int64("cluster", clusterID).
		Int64("vcId", req.VCID).
		Int64("nonce", req.Nonce).
		Int("bytes", len(env.Data)).
		Msg("transcription submitted")

	d.spawn(req, func(ctx context.Context) Result {
		transcription, err := d.cfg.Transcriber.Transcribe(ctx, job)
		if err != nil {
			return failure("transcription", err)
		}
		return Result{
			Outcome:    OutcomeSuccess,
			Transcript: transcription.Transcript,
			RawData:    transcription.Raw,
		}
	})
	return nil
}

type fetchFunc func(ctx context.Context, id int64) (any, error)

func (d *Dispatcher) fetch(s *Session, env *protocol.Envelope, kind Kind, replyCode protocol.Opcode, id *int64, idField string, fn fetchFunc) error {
	if env.Nonce == nil {
		return apperrors.MissingRequired("nonce")
	}
	if id == nil {
		return apperrors.MissingRequired(idField)
	}

	clusterID, _ := clusterFor(s, env)
	now := d.now()
	req := PendingRequest{
		Key:       Key{ConnectionID: s.ID(), Kind: kind, Nonce: *env.Nonce},
		ReplyCode: replyCode,
		ClusterID: clusterID,
		Deadline:  now.Add(d.cfg.FetchTimeout),
		CreatedAt: now,
	}
	if err := d.cfg.Tracker.Register(req); err != nil {
		return err
	}

	lookupID := *id
	d.spawn(req, func(ctx context.Context) Result {
		rec, err := fn(ctx, lookupID)
		if err != nil {
			return failure("database lookup", err)
		}
		if rec == nil {
			return Result{Outcome: OutcomeNotFound}
		}
		return Result{Outcome: OutcomeSuccess, Record: rec}
	})
	return nil
}

// spawn runs call against an adapter without blocking the read loop. The
// call's context expires at the request deadline, at which point the
// request is resolved as timed out whether the sweep got there first or not.
func (d *Dispatcher) spawn(req PendingRequest, call func(ctx context.Context) Result) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithDeadline(d.ctx, req.Deadline)
		defer cancel()

		result := call(ctx)

		if d.ctx.Err() != nil {
			return
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			result = Result{Outcome: OutcomeTimeout, Err: apperrors.Timeout(string(req.Kind))}
		}
		d.cfg.Tracker.Resolve(d.ctx, req.Key, result)
	}()
}

func failure(adapter string, err error) Result {
	if _, ok := apperrors.AsAppError(err); !ok {
		err = apperrors.AdapterFailure(adapter, err)
	}
	return Result{Outcome: OutcomeFailure, Err: err}
}

// record flattens a typed nil row into an untyped nil.
func record[T any](row *T, err error) (any, error) {
	if err != nil || row == nil {
		return nil, err
	}
	return row, nil
}
