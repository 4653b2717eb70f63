package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimit(t *testing.T) {
	mw, closeFn, err := RateLimit(context.Background(), RateLimitOptions{Rate: "2-M"}, testLogger)
	require.NoError(t, err)
	defer closeFn()

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTemporaryRedirect)
	}))

	do := func(remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/luma", nil)
		req.RemoteAddr = remoteAddr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusTemporaryRedirect, do("192.0.2.1:1000").Code)
	rr := do("192.0.2.1:1001")
	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))

	rr = do("192.0.2.1:1002")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "Too many requests\n", rr.Body.String())

	// Счётчики ведутся по адресу клиента
	assert.Equal(t, http.StatusTemporaryRedirect, do("192.0.2.2:1000").Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	mw, closeFn, err := RateLimit(context.Background(), RateLimitOptions{}, testLogger)
	require.NoError(t, err)
	assert.NoError(t, closeFn())

	for i := 0; i < 5; i++ {
		rr := httptest.NewRecorder()
		mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	}
}

func TestRateLimit_InvalidOptions(t *testing.T) {
	_, _, err := RateLimit(context.Background(), RateLimitOptions{Rate: "often"}, testLogger)
	assert.Error(t, err)

	_, _, err = RateLimit(context.Background(), RateLimitOptions{Rate: "10-M", RedisURL: "not-a-url"}, testLogger)
	assert.Error(t, err)
}
