package ratelim

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
)

func TestLimitPerIP(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	h := rl.Limit(func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusNoContent)
	})

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/public/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h(rec, req, nil)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, call("10.0.0.1:1111"))
	assert.Equal(t, http.StatusNoContent, call("10.0.0.1:2222"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:3333"))
	assert.Equal(t, http.StatusNoContent, call("10.0.0.2:1111"))
}

func TestSweepDropsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(5, 1)
	rl.getLimiter("10.0.0.1")
	rl.visitors["10.0.0.1"].lastSeen = time.Now().Add(-time.Hour)
	rl.getLimiter("10.0.0.2")

	rl.Sweep(10 * time.Minute)
	assert.NotContains(t, rl.visitors, "10.0.0.1")
	assert.Contains(t, rl.visitors, "10.0.0.2")
}
