package pagination

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorTokenIsURLSafe(t *testing.T) {
	cursor := Cursor{CreatedAt: time.Date(2026, 3, 2, 9, 30, 0, 123456789, time.FixedZone("EST", -5*3600)), ID: uuid.New()}
	token := EncodeCursor(cursor)
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")
	assert.NotContains(t, token, "=")

	parsed, err := ParseCursor(token)
	require.NoError(t, err)
	assert.True(t, parsed.CreatedAt.Equal(cursor.CreatedAt))
	assert.Equal(t, cursor.ID, parsed.ID)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	parsed, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, parsed)

	for _, token := range []string{"%%%", "bm8tc2VwYXJhdG9y", "MjAyNi0wMy0wMn5ub3QtYS11dWlk"} {
		_, err := ParseCursor(token)
		assert.True(t, errors.Is(err, ErrMalformedCursor), token)
	}
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+1))
	assert.Equal(t, 7, NormalizeLimit(7))
}
