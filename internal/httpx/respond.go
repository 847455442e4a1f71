package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/ariefcatur/go-shop-checkout.git/internal/shop"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errBody struct {
	Error   string               `json:"error"`
	Code    string               `json:"code,omitempty"`
	Details []shop.StockShortage `json:"details,omitempty"`
}

// writeErr maps the error taxonomy to HTTP: Invalid 400, NotFound 404,
// Conflict 409 (boleh di-retry sekali oleh client), Rule 422.
func writeErr(w http.ResponseWriter, err error) {
	e, ok := shop.AsError(err)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errBody{Error: err.Error()})
		return
	}
	code := http.StatusInternalServerError
	switch e.Kind {
	case shop.KindInvalid:
		code = http.StatusBadRequest
	case shop.KindNotFound:
		code = http.StatusNotFound
	case shop.KindConflict:
		code = http.StatusConflict
	case shop.KindRule:
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, errBody{Error: e.Message, Code: e.Code, Details: e.Details})
}
