package handler

import (
	"encoding/json"
	"net/http"
	"time"
)

// apiResponse is the shared envelope every endpoint answers with.
type apiResponse struct {
	Success             bool             `json:"success"`
	Message             string           `json:"message,omitempty"`
	Token               string           `json:"token,omitempty"`
	Available           *bool            `json:"available,omitempty"`
	IsAcceptingMessages *bool            `json:"isAcceptingMessages,omitempty"`
	Messages            []messagePayload `json:"messages,omitempty"`
	Suggestions         []string         `json:"suggestions,omitempty"`
}

type messagePayload struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func writeJSON(w http.ResponseWriter, status int, resp interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func writeSuccess(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiResponse{Success: true, Message: message})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiResponse{Success: false, Message: message})
}

func boolPtr(b bool) *bool { return &b }
