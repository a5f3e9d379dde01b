package protocol

import "strconv"

// Opcode is the integer carried in the "code" field of every message.
// Client and server opcodes share the number space but not the meaning.
type Opcode int

// Client opcodes
const (
	OpIdentify              Opcode = 0
	OpServerCount           Opcode = 1
	OpUserCount             Opcode = 2
	OpRegisterVoiceChannels Opcode = 3
	OpCallTTSAPI            Opcode = 4
	OpFetchUser             Opcode = 5
	OpFetchGuild            Opcode = 6
	OpFetchChannel          Opcode = 7
)

// Server opcodes
const (
	OpAuthorized           Opcode = 0
	OpTTSAPIResponse       Opcode = 4
	OpUserResponse         Opcode = 5
	OpGuildResponse        Opcode = 6
	OpChannelResponse      Opcode = 7
	OpVoiceChannelResponse Opcode = 8
)

var clientOpcodeNames = map[Opcode]string{
	OpIdentify:              "IDENTIFY",
	OpServerCount:           "SERVER_COUNT",
	OpUserCount:             "USER_COUNT",
	OpRegisterVoiceChannels: "REGISTER_VOICE_CHANNELS",
	OpCallTTSAPI:            "CALL_TTS_API",
	OpFetchUser:             "FETCH_USER",
	OpFetchGuild:            "FETCH_GUILD",
	OpFetchChannel:          "FETCH_CHANNEL",
}

// String names the opcode as a client opcode, which is how inbound
// messages are logged.
func (o Opcode) String() string {
	if name, ok := clientOpcodeNames[o]; ok {
		return name
	}
	return "UNKNOWN_" + strconv.Itoa(int(o))
}

// IsClientOpcode reports whether o is an opcode a client may send.
func (o Opcode) IsClientOpcode() bool {
	_, ok := clientOpcodeNames[o]
	return ok
}
