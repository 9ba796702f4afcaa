package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/fundscore/internal/modules/backtest"
	"github.com/aristath/fundscore/internal/modules/navdata"
	"github.com/aristath/fundscore/internal/modules/ranking"
	"github.com/aristath/fundscore/internal/modules/registry"
	"github.com/aristath/fundscore/internal/modules/scoring"
	"github.com/aristath/fundscore/internal/services"
)

// Handlers serves the scoring, ranking, backtest, and data quality
// endpoints.
type Handlers struct {
	registry       *registry.Repository
	navRepo        *navdata.Repository
	scoreRepo      *scoring.ScoreRepository
	rankingRepo    *ranking.Repository
	backtestRepo   *backtest.Repository
	backtestEngine *backtest.Engine
	cycles         *services.CycleService
	log            zerolog.Logger
}

// NewHandlers creates the API handlers.
func NewHandlers(
	reg *registry.Repository,
	navRepo *navdata.Repository,
	scoreRepo *scoring.ScoreRepository,
	rankingRepo *ranking.Repository,
	backtestRepo *backtest.Repository,
	backtestEngine *backtest.Engine,
	cycles *services.CycleService,
	log zerolog.Logger,
) *Handlers {
	return &Handlers{
		registry:       reg,
		navRepo:        navRepo,
		scoreRepo:      scoreRepo,
		rankingRepo:    rankingRepo,
		backtestRepo:   backtestRepo,
		backtestEngine: backtestEngine,
		cycles:         cycles,
		log:            log.With().Str("component", "handlers").Logger(),
	}
}

// HandleRunCycle triggers a scoring cycle synchronously.
// POST /api/scoring/cycle {"date": "2026-08-30"} (date optional, defaults
// to today)
func (h *Handlers) HandleRunCycle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
	}
	// Empty body is fine; only malformed JSON is rejected.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	scoreDate, ok := h.parseDateOrToday(w, req.Date)
	if !ok {
		return
	}

	result, err := h.cycles.RunScoringCycle(r.Context(), scoreDate)
	if err != nil {
		h.log.Error().Err(err).Msg("Scoring cycle failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, result)
}

// HandleGetScore returns the score row for a fund and date.
// GET /api/scoring/funds/{fundID}/score?date=2026-08-30
func (h *Handlers) HandleGetScore(w http.ResponseWriter, r *http.Request) {
	fundID, ok := h.parseFundID(w, r)
	if !ok {
		return
	}
	date, ok := h.parseDateOrToday(w, r.URL.Query().Get("date"))
	if !ok {
		return
	}

	set, err := h.scoreRepo.Get(fundID, date)
	if err != nil {
		h.log.Error().Err(err).Int64("fund_id", fundID).Msg("Failed to load score")
		h.writeError(w, http.StatusInternalServerError, "failed to load score")
		return
	}
	if set == nil {
		h.writeError(w, http.StatusNotFound, "no score for fund and date")
		return
	}

	h.writeJSON(w, set)
}

// HandleGetRanking returns a fund's category and subcategory rankings for a
// date.
// GET /api/scoring/funds/{fundID}/ranking?date=2026-08-30
func (h *Handlers) HandleGetRanking(w http.ResponseWriter, r *http.Request) {
	fundID, ok := h.parseFundID(w, r)
	if !ok {
		return
	}
	date, ok := h.parseDateOrToday(w, r.URL.Query().Get("date"))
	if !ok {
		return
	}

	response := make(map[string]*ranking.Record)
	for _, groupType := range []ranking.PeerGroupType{ranking.GroupCategory, ranking.GroupSubcategory} {
		rec, err := h.rankingRepo.Get(fundID, date, groupType)
		if err != nil {
			h.log.Error().Err(err).Int64("fund_id", fundID).Msg("Failed to load ranking")
			h.writeError(w, http.StatusInternalServerError, "failed to load ranking")
			return
		}
		response[string(groupType)] = rec
	}

	if response[string(ranking.GroupCategory)] == nil && response[string(ranking.GroupSubcategory)] == nil {
		h.writeError(w, http.StatusNotFound, "no ranking for fund and date")
		return
	}

	h.writeJSON(w, response)
}

// HandleListScores returns every score row for one date.
// GET /api/scoring/dates/{date}/scores
func (h *Handlers) HandleListScores(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse("2006-01-02", chi.URLParam(r, "date"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	sets, err := h.scoreRepo.ListByDate(date)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list scores")
		h.writeError(w, http.StatusInternalServerError, "failed to list scores")
		return
	}

	h.writeJSON(w, map[string]interface{}{
		"date":   date.Format("2006-01-02"),
		"count":  len(sets),
		"scores": sets,
	})
}

// HandleRunBacktest triggers a validation sweep synchronously.
// POST /api/backtest/run
func (h *Handlers) HandleRunBacktest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScoringDate    string `json:"scoring_date"`
		LookbackMonths int    `json:"lookback_months"`
		Horizons       []int  `json:"horizons"`
		CategoryFilter string `json:"category_filter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	scoringDate, err := time.Parse("2006-01-02", req.ScoringDate)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "scoring_date is required, expected YYYY-MM-DD")
		return
	}

	summary, err := h.backtestEngine.Run(r.Context(), backtest.RunConfig{
		ScoringDate:    scoringDate,
		LookbackMonths: req.LookbackMonths,
		Horizons:       req.Horizons,
		CategoryFilter: req.CategoryFilter,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Backtest run failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, summary)
}

// HandleListRuns returns recent validation runs.
// GET /api/backtest/runs?limit=20
func (h *Handlers) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	runs, err := h.backtestRepo.ListRuns(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list backtest runs")
		h.writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	h.writeJSON(w, map[string]interface{}{
		"count": len(runs),
		"runs":  runs,
	})
}

// HandleGetRun returns one validation run summary.
// GET /api/backtest/runs/{runID}
func (h *Handlers) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	run, err := h.backtestRepo.GetRun(runID)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to load backtest run")
		h.writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	if run == nil {
		h.writeError(w, http.StatusNotFound, "run not found")
		return
	}

	h.writeJSON(w, run)
}

// HandleGetRunDetails returns the per-fund rows of a validation run.
// GET /api/backtest/runs/{runID}/details
func (h *Handlers) HandleGetRunDetails(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	details, err := h.backtestRepo.Details(runID)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to load backtest details")
		h.writeError(w, http.StatusInternalServerError, "failed to load run details")
		return
	}

	h.writeJSON(w, map[string]interface{}{
		"run_id":  runID,
		"count":   len(details),
		"details": details,
	})
}

// HandleDataQuality returns the NAV series sanity report for a fund.
// GET /api/navdata/funds/{fundID}/quality
func (h *Handlers) HandleDataQuality(w http.ResponseWriter, r *http.Request) {
	fundID, ok := h.parseFundID(w, r)
	if !ok {
		return
	}

	fund, err := h.registry.GetFund(fundID)
	if err != nil {
		h.log.Error().Err(err).Int64("fund_id", fundID).Msg("Failed to load fund")
		h.writeError(w, http.StatusInternalServerError, "failed to load fund")
		return
	}
	if fund == nil {
		h.writeError(w, http.StatusNotFound, "fund not found")
		return
	}

	series, err := h.navRepo.GetObservations(fundID, time.Time{}, time.Now(), nil)
	if err != nil {
		h.log.Error().Err(err).Int64("fund_id", fundID).Msg("Failed to load NAV series")
		h.writeError(w, http.StatusInternalServerError, "failed to load NAV series")
		return
	}

	report := navdata.CheckQuality(series, scoring.ArtifactBoundDefault)
	h.writeJSON(w, report)
}

func (h *Handlers) parseFundID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	fundID, err := strconv.ParseInt(chi.URLParam(r, "fundID"), 10, 64)
	if err != nil || fundID <= 0 {
		h.writeError(w, http.StatusBadRequest, "invalid fund ID")
		return 0, false
	}
	return fundID, true
}

// parseDateOrToday parses a YYYY-MM-DD string, defaulting to today's UTC
// date when empty. Returns ok=false after writing an error response.
func (h *Handlers) parseDateOrToday(w http.ResponseWriter, raw string) (time.Time, bool) {
	if raw == "" {
		y, m, d := time.Now().UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}

func (h *Handlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
