package config

import (
	"encoding/json"
	"net/http"

	"financial_analyzer/pkg/api/web"
	"financial_analyzer/pkg/core/agent"
)

type Response struct {
	ActiveProvider string            `json:"active_provider"`
	Available      []string          `json:"available"`
	Routing        map[string]string `json:"routing"`
}

type SwitchRequest struct {
	Provider string `json:"provider"`
}

// Handler holds dependencies for config endpoints
type Handler struct {
	AgentMgr *agent.Manager
}

// NewHandler creates a new config handler
func NewHandler(agentMgr *agent.Manager) *Handler {
	return &Handler{
		AgentMgr: agentMgr,
	}
}

func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	web.CORS(w, "GET, OPTIONS")
	web.JSON(w, http.StatusOK, h.snapshot())
}

func (h *Handler) HandleSwitch(w http.ResponseWriter, r *http.Request) {
	web.CORS(w, "POST, OPTIONS")
	if web.Preflight(w, r) {
		return
	}

	var req SwitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.BadRequest(w, "Invalid request body")
		return
	}
	if err := h.AgentMgr.SetGlobalProvider(req.Provider); err != nil {
		web.BadRequest(w, err.Error())
		return
	}
	web.JSON(w, http.StatusOK, h.snapshot())
}

func (h *Handler) snapshot() Response {
	return Response{
		ActiveProvider: h.AgentMgr.GetActiveProvider(),
		Available:      h.AgentMgr.AvailableProviders(),
		Routing: map[string]string{
			agent.OCRExtraction: h.AgentMgr.ProviderName(agent.OCRExtraction),
			agent.Commentary:    h.AgentMgr.ProviderName(agent.Commentary),
		},
	}
}
