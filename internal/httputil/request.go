package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// MaxJSONBody limits JSON request bodies. Uploads have their own limit
// from settings.
const MaxJSONBody = 10 << 20

// ParseJSON decodes JSON from the request body into the given destination.
// It limits the request body size and provides clear error messages.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBody)

	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	return nil
}

// QueryInt reads an integer query parameter, falling back to def when the
// parameter is absent or malformed.
func QueryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// QueryBool reads a boolean query parameter. A parameter present without a
// value (?include_raw) counts as true.
func QueryBool(r *http.Request, name string) bool {
	if !r.URL.Query().Has(name) {
		return false
	}
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return v
}
