package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atropos-rl/coordinator/pkg/api"
)

func newTestOptions(t *testing.T) *globalOptions {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc(api.PathStatus, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"current_step":3,"queue_size":1}`))
	})
	mux.HandleFunc(api.PathHealth, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"healthy","started":true,"queue_size":1,"envs":2,"step":3}`))
	})
	mux.HandleFunc(api.PathStatusEnv, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"current_step":3,"queue_size":0,"unallocated_fraction":0.4,"self_queue_size":1,"max_group_size":4,"env_weight":0.5}`))
	})
	mux.HandleFunc(api.PathInfo, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"batch_size":4,"max_token_len":256}`))
	})
	mux.HandleFunc(api.PathRunInfo, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"group":"a","project":"p"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &globalOptions{
		Endpoint: srv.URL,
		client:   srv.Client(),
	}
}

func TestStatusCmd(t *testing.T) {
	opts := newTestOptions(t)
	require.NoError(t, (&statusCmd{}).Run(opts))
}

func TestHealthCmd(t *testing.T) {
	opts := newTestOptions(t)
	require.NoError(t, (&healthCmd{}).Run(opts))
}

func TestStatusEnvCmd(t *testing.T) {
	opts := newTestOptions(t)
	require.NoError(t, (&statusEnvCmd{EnvID: 0}).Run(opts))
}

func TestInfoCmds(t *testing.T) {
	opts := newTestOptions(t)
	require.NoError(t, (&infoCmd{}).Run(opts))
	require.NoError(t, (&runInfoCmd{}).Run(opts))
}

func TestStatusCmdServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	opts := &globalOptions{Endpoint: srv.URL, client: srv.Client()}
	require.Error(t, (&statusCmd{}).Run(opts))
}
