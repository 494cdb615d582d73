package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/finops-claw-gang/eventcheck-go/internal/batch"
	"github.com/finops-claw-gang/eventcheck-go/internal/compare"
	"github.com/finops-claw-gang/eventcheck-go/internal/domain"
	"github.com/finops-claw-gang/eventcheck-go/internal/eventjson"
	"github.com/finops-claw-gang/eventcheck-go/internal/report"
	"github.com/finops-claw-gang/eventcheck-go/internal/store"
	"github.com/finops-claw-gang/eventcheck-go/internal/uischema"
)

// compareRequest carries two events. Each side is either a JSON object or a
// string holding the event text. An absent aliases list selects the server
// rules; an empty one disables aliasing.
type compareRequest struct {
	A       json.RawMessage    `json:"a"`
	B       json.RawMessage    `json:"b"`
	Aliases []domain.AliasRule `json:"aliases"`
}

type compareResponse struct {
	ID          string                  `json:"id,omitempty"`
	Fingerprint string                  `json:"fingerprint,omitempty"`
	Cached      bool                    `json:"cached,omitempty"`
	Result      domain.ComparisonResult `json:"result"`
	Summary     report.Summary          `json:"summary"`
	Report      string                  `json:"report"`
	UI          uischema.UISchema       `json:"ui"`
}

type parseErrorResponse struct {
	Error  string            `json:"error"`
	Errors map[string]string `json:"errors"`
	Report string            `json:"report"`
	UI     uischema.UISchema `json:"ui"`
}

type batchRequest struct {
	Pairs []struct {
		ID string          `json:"id"`
		A  json.RawMessage `json:"a"`
		B  json.RawMessage `json:"b"`
	} `json:"pairs"`
	Aliases []domain.AliasRule `json:"aliases"`
}

type batchItem struct {
	ID     string                   `json:"id,omitempty"`
	Result *domain.ComparisonResult `json:"result,omitempty"`
	Errors map[string]string        `json:"errors,omitempty"`
}

type batchResponse struct {
	Results []batchItem    `json:"results"`
	Tally   map[string]int `json:"tally"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleExample(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"a": eventjson.ExampleA,
		"b": eventjson.ExampleB,
	})
}

func (s *Server) handleIdleUI(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, uischema.Idle())
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	textA, textB, err := eventTexts(req.A, req.B)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := s.comparatorFor(req.Aliases)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	recA, recB, err := eventjson.ParsePair(textA, textB)
	if err != nil {
		if s.otel != nil {
			s.otel.RecordParseFailure(r.Context())
		}
		writeParseError(w, err)
		return
	}

	result := c.Compare(recA, recB)
	s.observe(r.Context(), result)
	resp := compareResponse{
		Result:  result,
		Summary: report.Summarize(result),
		Report:  report.Text(result),
		UI:      uischema.Build(result),
	}

	if s.store != nil {
		entry, cached, err := s.persist(r, recA, recB, c.Aliases(), result)
		if err != nil {
			slog.Error("store comparison", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to store comparison")
			return
		}
		resp.ID = entry.ID
		resp.Fingerprint = entry.Fingerprint
		resp.Cached = cached
	}
	writeJSON(w, http.StatusOK, resp)
}

// observe counts a served comparison in whichever metric backends are set.
func (s *Server) observe(ctx context.Context, result domain.ComparisonResult) {
	if s.metrics != nil {
		s.metrics.ObserveGrade(string(result.Grade))
	}
	if s.otel != nil {
		s.otel.RecordComparison(ctx, result)
	}
}

// persist returns the stored entry for an identical earlier comparison, or
// saves a new one.
func (s *Server) persist(r *http.Request, a, b domain.Record, aliases []domain.AliasRule, result domain.ComparisonResult) (store.Entry, bool, error) {
	entry, err := store.NewEntry(a, b, aliases, result)
	if err != nil {
		return store.Entry{}, false, err
	}
	existing, err := s.store.FindByFingerprint(r.Context(), entry.Fingerprint)
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return store.Entry{}, false, err
	}
	saved, err := s.store.Save(r.Context(), entry)
	return saved, false, err
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Pairs) == 0 {
		writeError(w, http.StatusBadRequest, "at least one pair is required")
		return
	}
	if len(req.Pairs) > maxBatchPairs {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d pairs per batch", maxBatchPairs))
		return
	}
	c, err := s.comparatorFor(req.Aliases)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pairs := make([]batch.Pair, len(req.Pairs))
	for i, p := range req.Pairs {
		a, b, err := eventTexts(p.A, p.B)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("pair %d: %v", i, err))
			return
		}
		pairs[i] = batch.Pair{ID: p.ID, A: a, B: b}
	}

	start := time.Now()
	results, err := batch.CompareAll(r.Context(), c, pairs, s.batchLimit)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if s.otel != nil {
		s.otel.RecordBatchLatency(r.Context(), time.Since(start))
	}

	resp := batchResponse{Results: make([]batchItem, len(results)), Tally: batch.Tally(results)}
	for i, res := range results {
		item := batchItem{ID: res.ID, Result: res.Result}
		if res.Failed() {
			item.Errors = errorMessages(res.Err)
			if s.otel != nil {
				s.otel.RecordParseFailure(r.Context())
			}
		} else {
			s.observe(r.Context(), *res.Result)
		}
		resp.Results[i] = item
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetComparison(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "result store not configured")
		return
	}
	entry, err := s.store.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "comparison not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) comparatorFor(aliases []domain.AliasRule) (*compare.Comparator, error) {
	if aliases == nil {
		return s.comparator, nil
	}
	if err := domain.ValidateAliasRules(aliases); err != nil {
		return nil, err
	}
	return compare.New(aliases...), nil
}

// eventTexts converts the raw request sides into event text.
func eventTexts(a, b json.RawMessage) ([]byte, []byte, error) {
	textA, err := eventText("a", a)
	if err != nil {
		return nil, nil, err
	}
	textB, err := eventText("b", b)
	if err != nil {
		return nil, nil, err
	}
	return textA, textB, nil
}

func eventText(side string, raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("event %s is required", side)
	}
	if raw[0] != '"' {
		return raw, nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, fmt.Errorf("event %s: %w", side, err)
	}
	return []byte(text), nil
}

func writeParseError(w http.ResponseWriter, err error) {
	mal, ok := eventjson.AsMalformed(err)
	if !ok {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusUnprocessableEntity, parseErrorResponse{
		Error:  "malformed event",
		Errors: errorMessages(mal),
		Report: report.ParseErrorText(mal),
		UI:     uischema.BuildParseError(mal),
	})
}

// errorMessages keys parse messages by side, or returns the error text under
// "error" for anything else.
func errorMessages(err error) map[string]string {
	mal, ok := eventjson.AsMalformed(err)
	if !ok {
		return map[string]string{"error": err.Error()}
	}
	out := make(map[string]string)
	for side, msg := range mal.Messages() {
		out[string(side)] = msg
	}
	return out
}
