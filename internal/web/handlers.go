package web

import (
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/JonMunkholm/eventpipe/internal/core"
	"github.com/go-chi/chi/v5"
)

// tableNamePattern limits table names accepted from URLs.
var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// tableParam returns the ?table= query value or def, validated.
func tableParam(r *http.Request, def string) (string, error) {
	table := r.URL.Query().Get("table")
	if table == "" {
		table = def
	}
	if !tableNamePattern.MatchString(table) {
		return "", fmt.Errorf("%w: bad table name %q", errInvalidRequest, table)
	}
	return table, nil
}

type tablesResponse struct {
	Tables []core.TableCount `json:"tables"`
}

type dedupResponse struct {
	Table        string               `json:"table"`
	Window       string               `json:"window"`
	Status       string               `json:"status"`
	ExactGroups  int64                `json:"exact_groups"`
	WindowPairs  int64                `json:"window_pairs"`
	ExactSamples []duplicateGroupJSON `json:"exact_samples"`
	PairSamples  []adjacentPairJSON   `json:"pair_samples"`
	Checks       []core.Check         `json:"checks"`
}

// duplicateGroupJSON mirrors core.DuplicateGroup field for field.
type duplicateGroupJSON struct {
	EventType   string    `json:"event_type"`
	ProductID   string    `json:"product_id"`
	Price       string    `json:"price"`
	UserID      string    `json:"user_id"`
	UserSession string    `json:"user_session"`
	EventTime   time.Time `json:"event_time"`
	Count       int64     `json:"count"`
}

type adjacentPairJSON struct {
	EventType     string    `json:"event_type"`
	ProductID     string    `json:"product_id"`
	EventTime     time.Time `json:"event_time"`
	PrevEventTime time.Time `json:"prev_event_time"`
	GapSeconds    float64   `json:"gap_seconds"`
}

type enrichmentResponse struct {
	Table          string           `json:"table"`
	Status         string           `json:"status"`
	Columns        []string         `json:"columns"`
	MissingColumns []string         `json:"missing_columns"`
	Samples        []enrichedSample `json:"samples"`
	Checks         []core.Check     `json:"checks"`
}

type enrichedSample struct {
	EventType    string `json:"event_type"`
	ProductID    string `json:"product_id"`
	CategoryCode string `json:"category_code"`
	Brand        string `json:"brand"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	counts, err := s.checker.CountTables(r.Context(), s.tables)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tablesResponse{Tables: counts})
}

func (s *Server) handleTableCount(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !tableNamePattern.MatchString(name) {
		respondError(w, r, fmt.Errorf("%w: bad table name %q", errInvalidRequest, name))
		return
	}

	counts, err := s.checker.CountTables(r.Context(), []string{name})
	if err != nil {
		respondError(w, r, err)
		return
	}
	if len(counts) == 0 || !counts[0].Exists {
		respondError(w, r, &core.MissingTableError{Table: name})
		return
	}
	writeJSON(w, http.StatusOK, counts[0])
}

func (s *Server) handleDedupCheck(w http.ResponseWriter, r *http.Request) {
	table, err := tableParam(r, core.DefaultCustomersTable)
	if err != nil {
		respondError(w, r, err)
		return
	}

	report, err := s.checker.CheckDedup(r.Context(), table)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := dedupResponse{
		Table:        report.Table,
		Window:       report.Window.String(),
		Status:       report.Validation.Status(),
		ExactGroups:  report.ExactGroups,
		WindowPairs:  report.WindowPairs,
		ExactSamples: make([]duplicateGroupJSON, 0, len(report.ExactSamples)),
		PairSamples:  make([]adjacentPairJSON, 0, len(report.PairSamples)),
		Checks:       report.Validation.Checks,
	}
	for _, g := range report.ExactSamples {
		resp.ExactSamples = append(resp.ExactSamples, duplicateGroupJSON(g))
	}
	for _, p := range report.PairSamples {
		resp.PairSamples = append(resp.PairSamples, adjacentPairJSON(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEnrichmentCheck(w http.ResponseWriter, r *http.Request) {
	table, err := tableParam(r, core.DefaultCustomersTable)
	if err != nil {
		respondError(w, r, err)
		return
	}

	report, err := s.checker.VerifyEnrichment(r.Context(), table)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := enrichmentResponse{
		Table:          report.Table,
		Status:         report.Validation.Status(),
		Columns:        report.Columns,
		MissingColumns: report.MissingColumns,
		Samples:        make([]enrichedSample, 0, len(report.Samples)),
		Checks:         report.Validation.Checks,
	}
	if resp.MissingColumns == nil {
		resp.MissingColumns = []string{}
	}
	for _, e := range report.Samples {
		resp.Samples = append(resp.Samples, enrichedSample(e))
	}
	writeJSON(w, http.StatusOK, resp)
}
