package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// accountServer answers /auth/verify for the token "good" and counts hits.
func accountServer(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		var body struct {
			Credentials string `json:"credentials"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Credentials != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"verify": true, "username": "ann"}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(append(args, "--env-file", ""))
	err := root.Execute()
	return out.String(), err
}

func TestVerifyCommand_UsesConfiguredAPI(t *testing.T) {
	srv, hits := accountServer(t, http.StatusOK)
	path := writeConfig(t, "server:\n  token: good\napi:\n  url: "+srv.URL+"\n")

	out, err := runRoot(t, "verify", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "valid=true username=ann")
	assert.Equal(t, int32(1), hits.Load())
}

func TestVerifyCommand_ZeroRetriesFromConfig(t *testing.T) {
	srv, hits := accountServer(t, http.StatusBadGateway)
	path := writeConfig(t, "api:\n  url: "+srv.URL+"\n  max_retries: 0\n")

	_, err := runRoot(t, "verify", "--config", path, "--token", "good")
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestVerifyCommand_FlagOverridesConfig(t *testing.T) {
	configured, configuredHits := accountServer(t, http.StatusOK)
	override, overrideHits := accountServer(t, http.StatusOK)
	path := writeConfig(t, "api:\n  url: "+configured.URL+"\n")

	_, err := runRoot(t, "verify", "--config", path, "--api-url", override.URL, "--token", "good")
	require.NoError(t, err)
	assert.Zero(t, configuredHits.Load())
	assert.Equal(t, int32(1), overrideHits.Load())
}

func TestVerifyCommand_NegativeRetries(t *testing.T) {
	_, err := runRoot(t, "verify", "--token", "good", "--retries", "-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--retries must be >= 0")
}
