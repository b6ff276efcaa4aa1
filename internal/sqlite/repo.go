// Package sqlite implements the persistent store over sqlx.
package sqlite

import (
	"github.com/jmoiron/sqlx"

	"github.com/muralapp/mural/internal/mural"
)

// Ensure Repo implements the Repository interface
var _ mural.Repository = Repo{}

type Repo struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) Repo {
	return Repo{db: db}
}
