package server

import (
	"encoding/json"
	"errors"
	"net/http"

	ferrors "github.com/sambeau/fillin/pkg/fillin/errors"
)

var errUnsupportedMedia = errors.New("request body must be application/json")

// errorBody is the JSON shape of every error response. Engine errors carry
// their code, position and hints; other errors only a message.
type errorBody struct {
	Error any `json:"error"`
}

type plainError struct {
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	var fe *ferrors.FillinError
	if errors.As(err, &fe) {
		writeJSON(w, status, errorBody{Error: fe})
		return
	}
	writeJSON(w, status, errorBody{Error: plainError{Message: err.Error()}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}
