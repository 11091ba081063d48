package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germainlefebvre4/cvwonder-studio/internal/model"
)

func TestHandleNotFound(t *testing.T) {
	t.Run("no rows becomes nil result", func(t *testing.T) {
		session := &model.Session{ID: "s1"}
		got, err := HandleNotFound(session, sql.ErrNoRows)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("wrapped no rows becomes nil result", func(t *testing.T) {
		session := &model.Session{ID: "s1"}
		got, err := HandleNotFound(session, fmt.Errorf("query: %w", sql.ErrNoRows))
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("other errors pass through", func(t *testing.T) {
		cause := errors.New("connection refused")
		_, err := HandleNotFound(&model.Session{}, cause)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("success returns result", func(t *testing.T) {
		session := &model.Session{ID: "s1"}
		got, err := HandleNotFound(session, nil)
		require.NoError(t, err)
		assert.Equal(t, "s1", got.ID)
	})
}
