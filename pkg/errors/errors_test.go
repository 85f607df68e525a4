package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapAndCode(t *testing.T) {
	base := errors.New("boom")
	err := fmt.Errorf("outer: %w", Wrap(base, CodeNotFound, "order not found"))

	require.True(t, IsCode(err, CodeNotFound))
	require.False(t, IsCode(err, CodeInvalid))
	require.Equal(t, CodeNotFound, CodeOf(err))
	require.ErrorIs(t, err, base)
	require.Equal(t, CodeUnknown, CodeOf(base))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalid:       http.StatusBadRequest,
		CodeNotFound:      http.StatusNotFound,
		CodeConflict:      http.StatusConflict,
		CodeAlreadyExists: http.StatusConflict,
		CodeForbidden:     http.StatusForbidden,
		CodeNotAcceptable: http.StatusNotAcceptable,
		CodeUnauthorized:  http.StatusUnauthorized,
		CodeUnavailable:   http.StatusServiceUnavailable,
		CodeInternal:      http.StatusInternalServerError,
	}
	for code, want := range cases {
		require.Equal(t, want, HTTPStatus(New(code, "x")), code)
	}
	require.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}

func TestWithMeta(t *testing.T) {
	err := Newf(CodeInvalid, "bad ttl %d", 2).WithMeta("field", "updateTtlHours")
	require.Equal(t, "invalid: bad ttl 2", err.Error())
	require.Equal(t, "updateTtlHours", err.Meta["field"])
}
