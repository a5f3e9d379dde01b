package model

import (
	"time"
)

type Guild struct {
	ID            int64     `db:"id" json:"id"`
	Snowflake     int64     `db:"snowflake" json:"snowflake"`
	VoiceChannel  *int64    `db:"voice_channel" json:"voice_channel,omitempty"`
	ScriptChannel *int64    `db:"script_channel" json:"script_channel,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
