package hub

import (
	"context"

	"github.com/scripty/hub-server-go/internal/model"
)

// Lookup is the database collaborator. A nil record with a nil error means
// the row does not exist.
type Lookup interface {
	FetchUser(ctx context.Context, userID int64) (*model.User, error)
	FetchGuild(ctx context.Context, guildID int64) (*model.Guild, error)
	FetchChannel(ctx context.Context, channelID int64, voice bool) (*model.Channel, error)
}

// Transcriber submits audio to the speech-to-text backend and blocks until
// it answers or ctx ends.
type Transcriber interface {
	Transcribe(ctx context.Context, req model.TranscriptionRequest) (*model.Transcription, error)
}

// StatsSink receives per-cluster counts.
type StatsSink interface {
	RecordServerCount(ctx context.Context, clusterID int64, count int64) error
	RecordUserCount(ctx context.Context, clusterID int64, count int64) error
}

type TranscriptionLimiter interface {
	AllowTranscription(ctx context.Context, clusterID int64) bool
}

type AudioValidator interface {
	ValidateAudio(data []byte) error
}
