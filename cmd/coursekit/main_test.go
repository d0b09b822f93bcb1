package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/coursekit/pkg/environment"
	"github.com/dmitrymomot/coursekit/pkg/logger"
	"github.com/dmitrymomot/coursekit/pkg/mongo"
	"github.com/dmitrymomot/coursekit/pkg/requestid"
)

func TestRoutes(t *testing.T) {
	t.Parallel()

	cfg := mongo.DefaultConfig()
	cfg.ConnectionURL = "mongodb://db.internal:27018/coursekit"
	db := mongo.NewManager(cfg, mongo.WithExitFunc(func(int) {}))
	h := routes(logger.Discard(), environment.Development, db)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	t.Run("live", func(t *testing.T) {
		t.Parallel()
		rec := get("/health/live")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ALIVE", rec.Body.String())
		assert.NotEmpty(t, rec.Header().Get(requestid.Header))
	})

	t.Run("ready before connect", func(t *testing.T) {
		t.Parallel()
		rec := get("/health/ready")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "NOT_READY", rec.Body.String())
	})

	t.Run("db status", func(t *testing.T) {
		t.Parallel()
		rec := get("/health/db")
		require.Equal(t, http.StatusOK, rec.Code)

		var st mongo.Status
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
		assert.False(t, st.IsConnected)
		assert.Equal(t, mongo.StateDisconnected, st.State)
		assert.Equal(t, mongo.ReadyDisconnected, st.ReadyState)
		assert.Equal(t, "db.internal", st.Host)
		assert.Equal(t, 27018, st.Port)
	})

	t.Run("unknown path", func(t *testing.T) {
		t.Parallel()
		rec := get("/courses")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.NotEmpty(t, rec.Header().Get(requestid.Header))
	})
}
