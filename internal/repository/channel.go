package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/scripty/hub-server-go/internal/model"
)

type ChannelRepository interface {
	// FindBySnowflake only matches channels whose voice flag equals voice.
	FindBySnowflake(ctx context.Context, snowflake int64, voice bool) (*model.Channel, error)
}

type channelRepo struct {
	db sqlxDB
}

func NewChannelRepository(db *sqlx.DB) ChannelRepository {
	return &channelRepo{db: db}
}

func (r *channelRepo) FindBySnowflake(ctx context.Context, snowflake int64, voice bool) (*model.Channel, error) {
	var channel model.Channel
	err := r.db.GetContext(ctx, &channel, `
		SELECT * FROM channels WHERE snowflake = $1 AND voice = $2
	`, snowflake, voice)
	return HandleNotFound(&channel, err)
}
