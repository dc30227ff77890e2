package web

import (
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/recipeflow/internal/core"
	"github.com/JonMunkholm/recipeflow/internal/logging"
	"github.com/JonMunkholm/recipeflow/internal/pipeline"
	"github.com/JonMunkholm/recipeflow/internal/tablefile"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListTables returns every registered table with its file status.
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.ListTables())
}

// handleExportTable streams a table's current file as CSV.
func (s *Server) handleExportTable(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "tableKey")

	t, err := s.backend.Table(key)
	if err != nil {
		respondError(w, r, err)
		return
	}

	fileName := key + ".csv"
	if def, ok := core.Get(key); ok && def.Info.FileName != "" {
		fileName = def.Info.FileName
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	if err := tablefile.Write(w, t); err != nil {
		logging.FromContext(r.Context()).Error("export write failed", "table", key, "error", err)
	}
}

// handleRules returns the rule plan in effect as YAML, in the format
// RULES_FILE accepts.
func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	out, err := s.backend.Plan().Marshal()
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Write(out)
}

// handleValidate runs the quality gate. Per-table failures are reported in
// the result body; the response is 200 as long as the run itself completed.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	res, err := s.backend.Validate(r.Context())
	if err != nil && len(res.Reports) == 0 {
		respondError(w, r, err)
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).Warn("validation finished with failures", "run_id", res.RunID, "error", err)
	}
	writeJSON(w, http.StatusOK, validateResponse(res))
}

// handleLatestReport returns the most recent validation result.
func (s *Server) handleLatestReport(w http.ResponseWriter, r *http.Request) {
	res, ok := s.backend.LatestValidation()
	if !ok {
		writeError(w, http.StatusNotFound, "no validation has run yet")
		return
	}
	writeJSON(w, http.StatusOK, validateResponse(res))
}

// ValidateResponse is the JSON body for validation results.
type ValidateResponse struct {
	pipeline.ValidateResult
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

func validateResponse(res pipeline.ValidateResult) ValidateResponse {
	out := ValidateResponse{ValidateResult: res}
	for _, rep := range res.Reports {
		switch {
		case rep.Failed():
			out.Failed++
		case rep.Skipped:
			out.Skipped++
		}
	}
	return out
}

// clientIP returns the host part of RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
