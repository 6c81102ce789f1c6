package validators

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/quotation-engine/pkg/errors"
)

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/notifications?limit=40", nil)
	got, err := ParseQueryInt(req, "limit", 25, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 40, got)

	got, err = ParseQueryInt(httptest.NewRequest(http.MethodGet, "/", nil), "limit", 25, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 25, got)

	for _, raw := range []string{"abc", "0", "101"} {
		_, err := ParseQueryInt(httptest.NewRequest(http.MethodGet, "/?limit="+raw, nil), "limit", 25, 1, 100)
		require.Error(t, err, raw)
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	}
}

func TestParseQueryBool(t *testing.T) {
	got, err := ParseQueryBool(httptest.NewRequest(http.MethodGet, "/?unreadOnly=true", nil), "unreadOnly", false)
	require.NoError(t, err)
	assert.True(t, got)

	_, err = ParseQueryBool(httptest.NewRequest(http.MethodGet, "/?unreadOnly=maybe", nil), "unreadOnly", false)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, map[string]any{"field": "unreadOnly"}, typed.Details())
}
