package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/scripty/hub-server-go/internal/model"
)

type UserRepository interface {
	FindBySnowflake(ctx context.Context, snowflake int64) (*model.User, error)
}

type userRepo struct {
	db sqlxDB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) FindBySnowflake(ctx context.Context, snowflake int64) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		SELECT * FROM users WHERE snowflake = $1
	`, snowflake)
	return HandleNotFound(&user, err)
}
