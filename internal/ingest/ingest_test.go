package ingest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegisterSendsPipeline(t *testing.T) {
	var (
		method string
		path   string
		body   map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"acknowledged":true}`))
	}))
	defer srv.Close()

	r := NewRegistrar(srv.URL+"/", quietLogger())
	require.NoError(t, r.Register(context.Background(), DefaultPipeline()))

	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/_ingest/pipeline/log-parser-pipeline", path)
	assert.Equal(t, "Parse log files with grok pattern", body["description"])

	processors, ok := body["processors"].([]any)
	require.True(t, ok)
	require.Len(t, processors, 3)

	grok := processors[0].(map[string]any)["grok"].(map[string]any)
	assert.Equal(t, "message", grok["field"])
	assert.Equal(t, []any{GrokPattern}, grok["patterns"])

	date := processors[1].(map[string]any)["date"].(map[string]any)
	assert.Equal(t, "@timestamp", date["target_field"])

	remove := processors[2].(map[string]any)["remove"].(map[string]any)
	assert.Equal(t, "timestamp", remove["field"])
}

func TestRegisterReportsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad pipeline"}`))
	}))
	defer srv.Close()

	err := NewRegistrar(srv.URL, quietLogger()).Register(context.Background(), DefaultPipeline())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad pipeline")
}

func TestRegisterAsyncIsNonFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	done := NewRegistrar(srv.URL, quietLogger()).RegisterAsync(context.Background())
	assert.Error(t, <-done)
}
