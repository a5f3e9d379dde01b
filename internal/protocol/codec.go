package protocol

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"

	apperrors "github.com/scripty/hub-server-go/internal/errors"
)

// Envelope is a decoded client message. Only the fields belonging to Code
// are populated; pointer fields are nil when the client omitted them.
type Envelope struct {
	Code      Opcode
	Auth      *string
	Cluster   *int64
	Count     *int64
	VCs       []int64
	HasVCs    bool
	Data      []byte
	VCID      *int64
	Nonce     *int64
	UserID    *int64
	GuildID   *int64
	ChannelID *int64
	Voice     bool
}

// Decode parses one client message. Any failure is a DECODE_ERROR AppError.
// Once the code has been read the returned envelope is non-nil, even
// alongside an error, and carries Code and (when readable) Nonce so the
// error reply can be correlated.
func Decode(raw []byte) (*Envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, apperrors.Decode("", "invalid JSON").WithCause(err)
	}
	if fields == nil {
		return nil, apperrors.Decode("", "message must be a JSON object")
	}

	r := &fieldReader{fields: fields}
	code := r.readInt("code")
	if r.err != nil {
		return nil, r.err
	}
	if code == nil {
		return nil, apperrors.Decode("", "no code passed in JSON")
	}

	env := &Envelope{Code: Opcode(*code)}

	switch env.Code {
	case OpIdentify:
		env.Auth = r.readString("auth")
		env.Cluster = r.readInt("cluster")
	case OpServerCount, OpUserCount:
		env.Cluster = r.readInt("cluster")
		env.Count = r.readInt("count")
	case OpRegisterVoiceChannels:
		env.Cluster = r.readInt("cluster")
		env.VCs, env.HasVCs = r.readIntList("vcs")
	case OpCallTTSAPI:
		env.Nonce = r.readInt("nonce")
		env.Cluster = r.readInt("cluster")
		env.VCID = r.readInt("vc_id")
		env.Data = r.readBytes("data")
	case OpFetchUser:
		env.Nonce = r.readInt("nonce")
		env.Cluster = r.readInt("cluster")
		env.UserID = r.readInt("user_id")
	case OpFetchGuild:
		env.Nonce = r.readInt("nonce")
		env.Cluster = r.readInt("cluster")
		env.GuildID = r.readInt("guild_id")
	case OpFetchChannel:
		env.Nonce = r.readInt("nonce")
		env.Cluster = r.readInt("cluster")
		env.ChannelID = r.readInt("channel_id")
		env.Voice = r.readBool("voice")
	}

	if r.err != nil {
		return env, r.err
	}
	return env, nil
}

var errNotInteger = errors.New("not an integer")

// Encode serializes a server message.
func Encode(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

// fieldReader keeps the first type error it meets; later reads are no-ops.
type fieldReader struct {
	fields map[string]json.RawMessage
	err    error
}

func (r *fieldReader) lookup(name string) (json.RawMessage, bool) {
	if r.err != nil {
		return nil, false
	}
	raw, ok := r.fields[name]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false
	}
	return raw, true
}

func (r *fieldReader) readInt(name string) *int64 {
	raw, ok := r.lookup(name)
	if !ok {
		return nil
	}
	n, err := parseInt(raw)
	if err != nil {
		r.err = apperrors.Decode(name, "must be an integer")
		return nil
	}
	return &n
}

func (r *fieldReader) readIntList(name string) ([]int64, bool) {
	raw, ok := r.lookup(name)
	if !ok {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		r.err = apperrors.Decode(name, "must be a list of integers")
		return nil, false
	}
	out := make([]int64, 0, len(items))
	for _, item := range items {
		n, err := parseInt(item)
		if err != nil {
			r.err = apperrors.Decode(name, "must be a list of integers")
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}

func (r *fieldReader) readString(name string) *string {
	raw, ok := r.lookup(name)
	if !ok {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		r.err = apperrors.Decode(name, "must be a string")
		return nil
	}
	return &s
}

func (r *fieldReader) readBool(name string) bool {
	raw, ok := r.lookup(name)
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		r.err = apperrors.Decode(name, "must be a boolean")
		return false
	}
	return b
}

func (r *fieldReader) readBytes(name string) []byte {
	raw, ok := r.lookup(name)
	if !ok {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		r.err = apperrors.Decode(name, "must be a base64 string")
		return nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		r.err = apperrors.Decode(name, "must be a base64 string")
		return nil
	}
	return b
}

// parseInt accepts JSON number literals without fraction or exponent.
// Quoted numbers are rejected.
func parseInt(raw json.RawMessage) (int64, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, err
	}
	num, ok := v.(json.Number)
	if !ok {
		return 0, errNotInteger
	}
	return num.Int64()
}
