package utils

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"shophub/apperr"
)

// RespondWithJSON sends a JSON response.
func RespondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, M{"status": code, "error_message": msg})
}

// RespondWithAppError maps err to its status and writes the error envelope.
// Internal failures are logged and never echoed to the client.
func RespondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperr.HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	RespondWithError(w, code, apperr.PublicMessage(err))
}

// SendResponse writes the success envelope used by every JSON endpoint.
func SendResponse(w http.ResponseWriter, status int, data any, message string) {
	RespondWithJSON(w, status, M{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

// DecodeJSON reads the request body into v, capped at 1 MB.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return apperr.InvalidArgument("invalid JSON payload")
	}
	return nil
}

type M map[string]interface{}
