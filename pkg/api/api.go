package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-kit/log/level"
	jsoniter "github.com/json-iterator/go"

	"github.com/atropos-rl/coordinator/pkg/model"
	"github.com/atropos-rl/coordinator/pkg/util/log"
)

const (
	PathRoot          = "/"
	PathRegister      = "/register"
	PathRegisterEnv   = "/register-env"
	PathDisconnectEnv = "/disconnect-env"
	PathRunInfo       = "/run_info"
	PathInfo          = "/info"
	PathBatch         = "/batch"
	PathLatestExample = "/latest_example"
	PathScoredData    = "/scored_data"
	PathScoredList    = "/scored_data_list"
	PathStatus        = "/status"
	PathStatusEnv     = "/status-env"
	PathResetData     = "/reset_data"
	PathHealth        = "/health"

	URLParamEnvID = "env_id"

	HeaderContentType = "Content-Type"
	HeaderAcceptJSON  = "application/json"
)

// WriteJSON marshals v and writes it with a 200. Encoding failures are
// internal invariant violations and surface as 500s.
func WriteJSON(w http.ResponseWriter, v interface{}) {
	data, err := jsoniter.Marshal(v)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set(HeaderContentType, HeaderAcceptJSON)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// WriteError writes a structured JSON error body with the given status code.
func WriteError(w http.ResponseWriter, statusCode int, err error) {
	level.Error(log.Logger).Log("msg", "request failed", "status", statusCode, "err", err)

	data, mErr := jsoniter.Marshal(&model.ErrorResponse{Error: err.Error()})
	if mErr != nil {
		http.Error(w, err.Error(), statusCode)
		return
	}
	w.Header().Set(HeaderContentType, HeaderAcceptJSON)
	w.WriteHeader(statusCode)
	_, _ = w.Write(data)
}

// ReadJSON decodes the request body into v, rejecting unknown fields.
func ReadJSON(r *http.Request, v interface{}) error {
	d := jsoniter.NewDecoder(r.Body)
	d.DisallowUnknownFields()
	if err := d.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// ParseEnvID pulls the env_id query parameter and range-checks it.
func ParseEnvID(r *http.Request) (int, error) {
	raw := r.URL.Query().Get(URLParamEnvID)
	if raw == "" {
		return 0, fmt.Errorf("please provide an env_id")
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("env_id: %w", err)
	}
	if id < 0 || id > model.MaxEnvID {
		return 0, fmt.Errorf("env_id: must be in [0, %d], got %d", model.MaxEnvID, id)
	}
	return id, nil
}
