package httputil

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the single error envelope shared by every endpoint.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Hint      string `json:"hint,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorEnvelope wraps ErrorBody under the "error" key.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// Pagination describes one page of a listing response.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// ListEnvelope is the shared shape of paginated listing responses.
type ListEnvelope struct {
	Data       any        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// RespondJSON writes a JSON response with the given status code.
// It marshals first so encoding failures cannot produce a partial body
// after headers are sent.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		RespondError(w, nil, http.StatusInternalServerError, "internal_error", "failed to encode response", "")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}

// RespondError writes the error envelope. The request may be nil (encoding
// fallback paths); when present its request ID is echoed in the body.
func RespondError(w http.ResponseWriter, r *http.Request, status int, code, message, hint string) {
	body := ErrorEnvelope{Error: ErrorBody{
		Code:    code,
		Message: message,
		Hint:    hint,
	}}
	if r != nil {
		body.Error.RequestID = GetRequestID(r)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}
