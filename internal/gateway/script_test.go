package gateway

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptProbe_CachesSuccess(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, "window.Razorpay = function() {};")
	}))
	defer srv.Close()

	p := NewScriptProbe(srv.URL+"/v1/checkout.js", srv.Client())

	require.NoError(t, p.Load(context.Background()))
	require.NoError(t, p.Load(context.Background()))
	assert.Equal(t, int32(1), hits.Load())
}

func TestScriptProbe_RetriesAfterFailure(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	p := NewScriptProbe(srv.URL, srv.Client())

	err := p.Load(context.Background())
	assert.ErrorIs(t, err, ErrScriptUnavailable)
	assert.Contains(t, err.Error(), "503")

	assert.NoError(t, p.Load(context.Background()))
	assert.Equal(t, int32(2), hits.Load())
}

func TestScriptProbe_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewScriptProbe(url, nil).Load(context.Background())
	assert.ErrorIs(t, err, ErrScriptUnavailable)
}

func TestNewScriptProbe_DefaultURL(t *testing.T) {
	assert.Equal(t, DefaultScriptURL, NewScriptProbe("", nil).url)
}
