package protocol

import (
	"encoding/json"

	apperrors "github.com/scripty/hub-server-go/internal/errors"
)

type Authorized struct {
	Code Opcode `json:"code"`
}

func NewAuthorized() Authorized {
	return Authorized{Code: OpAuthorized}
}

// TTSAPIResponse answers CALL_TTS_API. Transcript and RawData are absent
// when the job timed out or failed.
type TTSAPIResponse struct {
	Code       Opcode          `json:"code"`
	Nonce      int64           `json:"nonce"`
	VCID       int64           `json:"vc_id"`
	Transcript *string         `json:"transcript,omitempty"`
	RawData    json.RawMessage `json:"raw_data,omitempty"`
	Error      string          `json:"error,omitempty"`
}

type FetchStatus string

const (
	FetchStatusOK       FetchStatus = "ok"
	FetchStatusNotFound FetchStatus = "not_found"
	FetchStatusTimeout  FetchStatus = "timeout"
	FetchStatusError    FetchStatus = "error"
)

// FetchResponse answers FETCH_USER, FETCH_GUILD and FETCH_CHANNEL on opcodes
// 5 through 8. Data is only set with FetchStatusOK.
type FetchResponse struct {
	Code   Opcode      `json:"code"`
	Nonce  int64       `json:"nonce"`
	Status FetchStatus `json:"status"`
	Data   any         `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// ErrorReply is the in-band error message. It deliberately has no "code"
// field so clients never mistake it for an opcode reply.
type ErrorReply struct {
	Error       string              `json:"error"`
	ErrorCode   apperrors.ErrorCode `json:"error_code"`
	Details     any                 `json:"details,omitempty"`
	RequestCode *Opcode             `json:"request_code,omitempty"`
	Nonce       *int64              `json:"nonce,omitempty"`
}

// NewErrorReply builds an error reply for err. env may be nil when the
// message could not be decoded far enough to know its opcode.
func NewErrorReply(err error, env *Envelope) ErrorReply {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Internal("An unexpected error occurred")
	}

	reply := ErrorReply{
		Error:     appErr.Message,
		ErrorCode: appErr.Code,
		Details:   appErr.Details,
	}
	if env != nil {
		code := env.Code
		reply.RequestCode = &code
		reply.Nonce = env.Nonce
	}
	return reply
}
