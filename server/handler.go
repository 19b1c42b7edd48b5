package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sambeau/fillin/pkg/fillin"
	"github.com/sambeau/fillin/pkg/fillin/locale"
	"github.com/sambeau/fillin/pkg/fillin/props"
	"github.com/sambeau/fillin/pkg/fillin/source"
)

// renderRequest is the body of POST /render and POST /check. Data is a JSON
// object, or a list of objects to render the pattern once per record.
type renderRequest struct {
	Pattern string          `json:"pattern"`
	Data    json.RawMessage `json:"data,omitempty"`
	Culture string          `json:"culture,omitempty"`
}

type renderResponse struct {
	Result  *string  `json:"result,omitempty"`
	Results []string `json:"results,omitempty"`
}

type checkResponse struct {
	Terms []fillin.CheckedTerm `json:"terms"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Culture string `json:"culture"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: s.version,
		Culture: s.engine.Config().Culture().Name(),
	})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r)
	if err != nil {
		writeError(w, requestStatus(err), err)
		return
	}
	engine, err := s.engineFor(req.Culture)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	records, many, err := decodeData(req.Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	results := make([]string, 0, len(records))
	for _, rec := range records {
		out, err := engine.RenderContext(req.Pattern, rec)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		results = append(results, out)
	}

	if many {
		writeJSON(w, http.StatusOK, renderResponse{Results: results})
		return
	}
	writeJSON(w, http.StatusOK, renderResponse{Result: &results[0]})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r)
	if err != nil {
		writeError(w, requestStatus(err), err)
		return
	}
	engine, err := s.engineFor(req.Culture)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	terms, err := engine.Check(req.Pattern)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	if terms == nil {
		terms = []fillin.CheckedTerm{}
	}
	writeJSON(w, http.StatusOK, checkResponse{Terms: terms})
}

// engineFor returns the server engine, or a copy using culture when one is
// requested.
func (s *Server) engineFor(culture string) (*fillin.Engine, error) {
	if culture == "" {
		return s.engine, nil
	}
	c, err := locale.Parse(culture)
	if err != nil {
		return nil, fmt.Errorf("culture: %w", err)
	}
	return fillin.New(
		fillin.WithConfig(s.engine.Config().WithCulture(c)),
		fillin.WithLogger(s.logger),
	), nil
}

// limitBody caps request bodies at server.max_body.
func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.maxBody > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
		}
		next.ServeHTTP(w, r)
	})
}

func decodeRequest(r *http.Request) (renderRequest, error) {
	var req renderRequest
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return req, errUnsupportedMedia
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	return req, nil
}

// decodeData returns the records to render and whether data was a list.
// Absent or null data is one empty record.
func decodeData(raw json.RawMessage) ([]*props.Context, bool, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return []*props.Context{props.New()}, false, nil
	}
	records, err := source.Decode(raw, source.FormatJSON)
	if err != nil {
		return nil, false, fmt.Errorf("data: %w", err)
	}
	many := strings.HasPrefix(trimmed, "[")
	if many && len(records) == 0 {
		return nil, false, fmt.Errorf("data: empty list")
	}
	return records, many, nil
}

func requestStatus(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	}
	return http.StatusBadRequest
}
