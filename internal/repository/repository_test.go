package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapErr(t *testing.T) {
	assert.NoError(t, mapErr("op", nil))
	assert.ErrorIs(t, mapErr("op", pgx.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, mapErr("op", fmt.Errorf("wrapped: %w", pgx.ErrNoRows)), ErrNotFound)

	unique := &pgconn.PgError{Code: "23505", ConstraintName: "content_purchases_active_uidx"}
	err := mapErr("create purchase", unique)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "content_purchases_active_uidx")

	other := errors.New("connection reset")
	err = mapErr("list", other)
	assert.ErrorIs(t, err, other)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 20, clampLimit(0, 20, 100))
	assert.Equal(t, 20, clampLimit(-5, 20, 100))
	assert.Equal(t, 35, clampLimit(35, 20, 100))
	assert.Equal(t, 100, clampLimit(1000, 20, 100))
}
