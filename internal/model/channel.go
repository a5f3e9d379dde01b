package model

import (
	"time"
)

type Channel struct {
	ID             int64     `db:"id" json:"id"`
	Snowflake      int64     `db:"snowflake" json:"snowflake"`
	GuildSnowflake int64     `db:"guild_snowflake" json:"guild_snowflake"`
	Voice          bool      `db:"voice" json:"voice"`
	ScriptChannel  *int64    `db:"script_channel" json:"script_channel,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
