package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gerald-spec/novastock/stockroom/schema"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogRecordsRequestOutcome(t *testing.T) {
	buf := new(bytes.Buffer)
	audit := NewAuditLogger(buf)

	user := schema.User{Id: uuid.New(), Username: "alice", Email: "alice@mail.com"}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), userRequestContextKey, user)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Use(audit.Middleware)
	r.Route("/workspace/{workspace_id}", func(r chi.Router) {
		r.Get("/items", func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})

	workspaceId := uuid.NewString()
	req := httptest.NewRequest("GET", "/workspace/"+workspaceId+"/items", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "alice", entry["username"])
	assert.Equal(t, "alice@mail.com", entry["email"])
	assert.Equal(t, float64(http.StatusNoContent), entry["status"])

	// Params resolved by nested routers are present since the entry is
	// written after the handler runs.
	params, ok := entry["path_params"].(map[string]interface{})
	require.True(t, ok, "expected path_params group in audit entry")
	assert.Equal(t, workspaceId, params["workspace_id"])
}
