package coordinator

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/atropos-rl/coordinator/pkg/api"
	"github.com/atropos-rl/coordinator/pkg/model"
)

// RegisterRoutes attaches all coordinator endpoints to the router.
func (c *Coordinator) RegisterRoutes(r *mux.Router) {
	r.HandleFunc(api.PathRegister, c.RegisterHandler).Methods(http.MethodPost)
	r.HandleFunc(api.PathRegisterEnv, c.RegisterEnvHandler).Methods(http.MethodPost)
	r.HandleFunc(api.PathDisconnectEnv, c.DisconnectEnvHandler).Methods(http.MethodPost)
	r.HandleFunc(api.PathScoredData, c.ScoredDataHandler).Methods(http.MethodPost)
	r.HandleFunc(api.PathScoredList, c.ScoredDataListHandler).Methods(http.MethodPost)
	r.HandleFunc(api.PathBatch, c.BatchHandler).Methods(http.MethodGet)
	r.HandleFunc(api.PathLatestExample, c.LatestExampleHandler).Methods(http.MethodGet)
	r.HandleFunc(api.PathRunInfo, c.RunInfoHandler).Methods(http.MethodGet)
	r.HandleFunc(api.PathInfo, c.InfoHandler).Methods(http.MethodGet)
	r.HandleFunc(api.PathStatus, c.StatusHandler).Methods(http.MethodGet)
	r.HandleFunc(api.PathStatusEnv, c.StatusEnvHandler).Methods(http.MethodGet)
	r.HandleFunc(api.PathResetData, c.ResetDataHandler).Methods(http.MethodGet)
	r.HandleFunc(api.PathHealth, c.HealthHandler).Methods(http.MethodGet)
	r.HandleFunc(api.PathRoot, c.BannerHandler).Methods(http.MethodGet)
}

// BannerHandler serves the root banner.
func (c *Coordinator) BannerHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(c.cfg.Banner))
}

// RegisterHandler accepts trainer registration.
func (c *Coordinator) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	req := &model.RegisterTrainerRequest{}
	if err := api.ReadJSON(r, req); err != nil {
		api.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if err := req.Validate(); err != nil {
		api.WriteError(w, http.StatusBadRequest, err)
		return
	}

	api.WriteJSON(w, &model.RegisterTrainerResponse{UUID: c.RegisterTrainer(req)})
}

// RegisterEnvHandler accepts environment registration. Registration before
// the first batch poll is an ordering error, not an HTTP error: the env gets
// a 200 telling it to wait.
func (c *Coordinator) RegisterEnvHandler(w http.ResponseWriter, r *http.Request) {
	req := &model.RegisterEnvRequest{}
	if err := api.ReadJSON(r, req); err != nil {
		api.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if err := req.Validate(); err != nil {
		api.WriteError(w, http.StatusBadRequest, err)
		return
	}

	api.WriteJSON(w, c.RegisterEnv(req))
}

func (c *Coordinator) DisconnectEnvHandler(w http.ResponseWriter, r *http.Request) {
	req := &model.DisconnectEnvRequest{}
	if err := api.ReadJSON(r, req); err != nil {
		api.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if err := req.Validate(); err != nil {
		api.WriteError(w, http.StatusBadRequest, err)
		return
	}

	api.WriteJSON(w, c.DisconnectEnv(*req.EnvID))
}

func (c *Coordinator) ScoredDataHandler(w http.ResponseWriter, r *http.Request) {
	g := &model.ScoredGroup{}
	if err := api.ReadJSON(r, g); err != nil {
		api.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if err := g.Validate(); err != nil {
		api.WriteError(w, http.StatusBadRequest, err)
		return
	}

	api.WriteJSON(w, c.ProcessScored(g))
}

// ScoredDataListHandler ingests a list of groups. A malformed element aborts
// the whole request before any state is touched, keeping validation atomic
// with respect to the queue.
func (c *Coordinator) ScoredDataListHandler(w http.ResponseWriter, r *http.Request) {
	var groups []*model.ScoredGroup
	if err := api.ReadJSON(r, &groups); err != nil {
		api.WriteError(w, http.StatusBadRequest, err)
		return
	}
	for _, g := range groups {
		if err := g.Validate(); err != nil {
			api.WriteError(w, http.StatusBadRequest, err)
			return
		}
	}

	api.WriteJSON(w, c.ProcessScoredList(groups))
}

func (c *Coordinator) BatchHandler(w http.ResponseWriter, _ *http.Request) {
	api.WriteJSON(w, &model.BatchResponse{Batch: c.NextBatch()})
}

func (c *Coordinator) LatestExampleHandler(w http.ResponseWriter, _ *http.Request) {
	api.WriteJSON(w, c.LatestExample())
}

func (c *Coordinator) RunInfoHandler(w http.ResponseWriter, _ *http.Request) {
	api.WriteJSON(w, c.RunInfo())
}

func (c *Coordinator) InfoHandler(w http.ResponseWriter, _ *http.Request) {
	api.WriteJSON(w, c.Info())
}

func (c *Coordinator) StatusHandler(w http.ResponseWriter, _ *http.Request) {
	api.WriteJSON(w, c.Status())
}

func (c *Coordinator) StatusEnvHandler(w http.ResponseWriter, r *http.Request) {
	envID, err := api.ParseEnvID(r)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, err)
		return
	}

	api.WriteJSON(w, c.EnvStatus(envID))
}

func (c *Coordinator) ResetDataHandler(w http.ResponseWriter, _ *http.Request) {
	c.Reset()
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Reset successful"))
}

func (c *Coordinator) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	api.WriteJSON(w, c.Health())
}
