package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/scripty/hub-server-go/internal/errors"
	"github.com/scripty/hub-server-go/internal/model"
)

const maxTranscriptionResponseBytes = 1 << 20

// TranscriptionService forwards PCM audio to an HTTP speech-to-text backend.
// It sets no client timeout; the caller's context carries the deadline.
type TranscriptionService struct {
	client *http.Client
	url    string
	apiKey string
}

func NewTranscriptionService(url, apiKey string) *TranscriptionService {
	return &TranscriptionService{
		client: &http.Client{},
		url:    url,
		apiKey: apiKey,
	}
}

type transcriptionResponse struct {
	Transcript *string `json:"transcript"`
}

func (s *TranscriptionService) Transcribe(ctx context.Context, req model.TranscriptionRequest) (*model.Transcription, error) {
	if s.url == "" {
		return nil, apperrors.External("transcription", fmt.Errorf("TRANSCRIBE_API_URL is not configured"))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(req.Audio))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/octet-stream")
	httpReq.Header.Set("X-Sample-Rate", strconv.Itoa(req.SampleRate))
	httpReq.Header.Set("X-VC-ID", strconv.FormatInt(req.VCID, 10))
	if s.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	start := time.Now()
	resp, err := s.client.Do(httpReq)
	elapsed := time.Since(start)
	if err != nil {
		log.Error().
			Err(err).
			Int64("cluster", req.ClusterID).
			Int64("nonce", req.Nonce).
			Dur("elapsed", elapsed).
			Msg("transcription request error")
		return nil, apperrors.External("transcription", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTranscriptionResponseBytes))
	if err != nil {
		return nil, apperrors.External("transcription", fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error().
			Int("status", resp.StatusCode).
			Int64("cluster", req.ClusterID).
			Int64("nonce", req.Nonce).
			Dur("elapsed", elapsed).
			Msg("transcription request failed")
		return nil, apperrors.External("transcription", fmt.Errorf("status %d", resp.StatusCode))
	}

	var parsed transcriptionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apperrors.External("transcription", fmt.Errorf("decode response: %w", err))
	}
	if parsed.Transcript == nil {
		return nil, apperrors.External("transcription", fmt.Errorf("response has no transcript"))
	}

	log.Info().
		Int64("cluster", req.ClusterID).
		Int64("nonce", req.Nonce).
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Msg("transcription completed")

	return &model.Transcription{
		Transcript: *parsed.Transcript,
		Raw:        json.RawMessage(body),
	}, nil
}

// PCMValidator checks CALL_TTS_API payloads as 16-bit mono PCM.
type PCMValidator struct {
	minBytes int
	maxBytes int
}

func NewPCMValidator(sampleRate int, minDuration time.Duration, maxBytes int) *PCMValidator {
	bytesPerSecond := sampleRate * 2
	return &PCMValidator{
		minBytes: int(int64(bytesPerSecond) * minDuration.Milliseconds() / 1000),
		maxBytes: maxBytes,
	}
}

func (v *PCMValidator) ValidateAudio(data []byte) error {
	switch {
	case len(data)%2 != 0:
		return apperrors.InvalidAudio("odd byte count for 16-bit samples")
	case len(data) < v.minBytes:
		return apperrors.InvalidAudio(fmt.Sprintf("shorter than %d bytes", v.minBytes))
	case len(data) > v.maxBytes:
		return apperrors.InvalidAudio(fmt.Sprintf("longer than %d bytes", v.maxBytes))
	}
	return nil
}
