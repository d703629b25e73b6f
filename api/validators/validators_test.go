package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/sarpraslab/peminjaman-backend/pkg/errors"
	"github.com/stretchr/testify/require"
)

type sampleBody struct {
	Name     string `json:"name" validate:"required,min=3"`
	Quantity int    `json:"quantity" validate:"gte=1"`
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ab","quantity":0}`))
	var dest sampleBody
	err := DecodeJSONBody(req, &dest)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details := typed.Details().(map[string]string)
	require.Equal(t, "must be at least 3", details["name"])
	require.Equal(t, "must be greater than or equal to 1", details["quantity"])
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"kamera","quantity":1,"extra":true}`))
	var dest sampleBody
	require.Error(t, DecodeJSONBody(req, &dest))
}

func TestParseQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=5&from=2026-01-02&unread=true&user_id=nope", nil)

	limit, err := ParseQueryInt(req, "limit", 20, 1, 100)
	require.NoError(t, err)
	require.Equal(t, 5, limit)

	from, err := ParseQueryDate(req, "from")
	require.NoError(t, err)
	require.Equal(t, 2, from.Day())

	to, err := ParseQueryDate(req, "to")
	require.NoError(t, err)
	require.Nil(t, to)

	unread, err := ParseQueryBool(req, "unread")
	require.NoError(t, err)
	require.True(t, unread)

	_, err = ParseQueryUUID(req, "user_id")
	require.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	token, err := BearerToken("Bearer abc.def")
	require.NoError(t, err)
	require.Equal(t, "abc.def", token)

	_, err = BearerToken("Bearer   ")
	require.ErrorIs(t, err, ErrInvalidToken)
}
