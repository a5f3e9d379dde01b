package model

import (
	"time"
)

type User struct {
	ID          int64       `db:"id" json:"id"`
	Snowflake   int64       `db:"snowflake" json:"snowflake"`
	AccessLevel AccessLevel `db:"access_level" json:"access_level"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}
