package database

import (
	"context"
	"fmt"
)

// schema is applied idempotently at startup. The hub only reads these tables;
// the bot clusters own the writes.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id           BIGSERIAL PRIMARY KEY,
	snowflake    BIGINT NOT NULL UNIQUE,
	access_level INTEGER NOT NULL DEFAULT 50,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS guilds (
	id             BIGSERIAL PRIMARY KEY,
	snowflake      BIGINT NOT NULL UNIQUE,
	voice_channel  BIGINT,
	script_channel BIGINT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS channels (
	id              BIGSERIAL PRIMARY KEY,
	snowflake       BIGINT NOT NULL UNIQUE,
	guild_snowflake BIGINT NOT NULL,
	voice           BOOLEAN NOT NULL DEFAULT FALSE,
	script_channel  BIGINT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
