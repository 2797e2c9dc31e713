package handlers

import "net/http"

const (
	serviceName    = "MindEase Chatbot API"
	serviceVersion = "0.1.0"
)

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "mindease-chatbot",
	})
}

// Root describes the API and its endpoints.
func Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":    serviceName,
		"version": serviceVersion,
		"endpoints": map[string]string{
			"chat":          "/v1/chat",
			"conversations": "/v1/conversations",
			"websocket":     "/v1/ws",
			"health":        "/health",
		},
	})
}
