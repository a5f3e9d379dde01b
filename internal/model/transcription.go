package model

import "encoding/json"

// TranscriptionRequest is one CALL_TTS_API job handed to the speech-to-text
// backend. Audio is raw 16-bit little-endian mono PCM.
type TranscriptionRequest struct {
	Audio      []byte
	SampleRate int
	VCID       int64
	ClusterID  int64
	Nonce      int64
}

type Transcription struct {
	Transcript string
	Raw        json.RawMessage
}
