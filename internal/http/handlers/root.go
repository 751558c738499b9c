package handlers

import (
	"encoding/json"
	"net/http"
)

type rootResponse struct {
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Status    string            `json:"status"`
	Endpoints map[string]string `json:"endpoints"`
}

// Root describes the service and its endpoints.
// GET /
func Root(w http.ResponseWriter, r *http.Request) {
	resp := rootResponse{
		Service: "Claude Agent API",
		Version: Version,
		Status:  "running",
		Endpoints: map[string]string{
			"chat":    "POST /chat",
			"session": "GET /sessions/{session_id}",
			"history": "GET /sessions/{session_id}/history",
			"health":  "GET /health",
			"stats":   "GET /admin/stats",
			"metrics": "GET /metrics",
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
