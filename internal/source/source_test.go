package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/pxcrawl/internal/domain"
)

type stubSource struct{ name string }

func (s stubSource) Name() string { return s.name }
func (s stubSource) ProduceIdentifiers(context.Context) ([]domain.WorkID, error) {
	return nil, nil
}
func (s stubSource) ResetListingState() {}

func TestRegistry(t *testing.T) {
	r, err := NewRegistry(stubSource{"List"}, stubSource{"page"})
	require.NoError(t, err)

	s, ok := r.Get(" LIST ")
	require.True(t, ok)
	assert.Equal(t, "List", s.Name())
	assert.Equal(t, []string{"list", "page"}, r.Names())

	_, ok = r.Get("ranking")
	assert.False(t, ok)
	_, ok = Registry{}.Get("list")
	assert.False(t, ok)
}

func TestRegistry_Invalid(t *testing.T) {
	_, err := NewRegistry(stubSource{"a"}, stubSource{"A"})
	assert.Error(t, err)
	_, err = NewRegistry(stubSource{" "})
	assert.Error(t, err)
	_, err = NewRegistry(nil)
	assert.Error(t, err)
}

func TestGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ok" {
			assert.Equal(t, "text/html", r.Header.Get("Accept"))
			_, _ = w.Write([]byte("hello"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	b, err := Get(context.Background(), srv.Client(), srv.URL+"/ok", "text/html")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))

	_, err = Get(context.Background(), srv.Client(), srv.URL+"/down", "")
	var se *HTTPStatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
}

func TestError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &Error{Source: "page", Stage: "fetch", Err: inner}
	assert.True(t, errors.Is(err, inner))
	assert.Contains(t, err.Error(), "source=page stage=fetch")
}
