package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/scripty/hub-server-go/internal/model"
)

type GuildRepository interface {
	FindBySnowflake(ctx context.Context, snowflake int64) (*model.Guild, error)
}

type guildRepo struct {
	db sqlxDB
}

func NewGuildRepository(db *sqlx.DB) GuildRepository {
	return &guildRepo{db: db}
}

func (r *guildRepo) FindBySnowflake(ctx context.Context, snowflake int64) (*model.Guild, error) {
	var guild model.Guild
	err := r.db.GetContext(ctx, &guild, `
		SELECT * FROM guilds WHERE snowflake = $1
	`, snowflake)
	return HandleNotFound(&guild, err)
}
