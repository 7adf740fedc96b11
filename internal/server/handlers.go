package server

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/affordability-cli/internal/afford"
	"github.com/sells-group/affordability-cli/internal/aggregate"
	"github.com/sells-group/affordability-cli/internal/cache"
	"github.com/sells-group/affordability-cli/internal/dataset"
	"github.com/sells-group/affordability-cli/internal/enrich"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status": "ok",
		"cache":  s.pipeline.Stats(),
	}
	if t, err := s.pipeline.Table(); err == nil {
		resp["dataset_version"] = t.Version
		resp["rows"] = len(t.Rows)
	} else {
		resp["status"] = "loading"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	years, err := s.pipeline.Years()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := map[string]any{"years": years}
	if latest, err := s.pipeline.LatestYear(); err == nil {
		resp["latest"] = latest
	}
	writeJSON(w, http.StatusOK, resp)
}

type tierJSON struct {
	Tier  afford.Tier `json:"tier"`
	Lower *float64    `json:"lower"`
	Upper *float64    `json:"upper"`
}

func (s *Server) handleTiers(w http.ResponseWriter, _ *http.Request) {
	tiers := s.pipeline.Tiers()
	out := make([]tierJSON, 0, len(tiers.Bounds)+1)
	for _, t := range afford.AllTiers() {
		lo, hi := tiers.Range(t)
		if math.IsNaN(lo) {
			continue
		}
		out = append(out, tierJSON{Tier: t, Lower: aggregate.Finite(lo), Upper: aggregate.Finite(hi)})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"strategy": s.pipeline.Strategy(),
		"tiers":    out,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	income, persona, err := incomeParams(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, afford.Summarize(income, persona, s.pipeline.Strategy()))
}

func (s *Server) handleCities(w http.ResponseWriter, r *http.Request) {
	year, err := s.yearParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	key, err := aggregate.ParseSortKey(r.URL.Query().Get("sort"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	view, err := aggregate.ParseView(r.URL.Query().Get("view"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := s.pipeline.Cities(r.Context(), year)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := map[string]any{"year": year, "view": view}
	if view == aggregate.ViewSplit {
		split := aggregate.SplitRanked(rows, s.pipeline.Strategy())
		resp["affordable"] = split.Affordable
		resp["unaffordable"] = split.Unaffordable
	} else {
		resp["sort"] = key
		resp["cities"] = aggregate.Gap(aggregate.SortCities(rows, key), s.pipeline.Strategy())
	}
	if len(rows) == 0 {
		resp["message"] = noDataMessage
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	city, err := s.pipeline.ResolveCity(chi.URLParam(r, "city"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	points, err := s.pipeline.History(r.Context(), city)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := map[string]any{
		"city_code":    city,
		"display_name": aggregate.DisplayName(city),
		"history":      points,
	}
	if len(points) == 0 {
		resp["message"] = noDataMessage
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleZips(w http.ResponseWriter, r *http.Request) {
	city, err := s.pipeline.ResolveCity(chi.URLParam(r, "city"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	year, err := s.yearParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	income, persona, err := incomeParams(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	strategy := s.pipeline.Strategy()
	policy, err := enrich.PolicyFromConfig(s.opts.ColorPolicy, s.opts.ClipMax, income, strategy)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	zips, err := s.pipeline.Zips(r.Context(), city, year)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	records, stats, err := s.enricher.WithPolicy(policy).EnrichWithStats(r.Context(), zips)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == "geojson" {
		w.Header().Set("Content-Type", "application/geo+json")
		w.WriteHeader(http.StatusOK)
		b, err := enrich.FeatureCollection(records).MarshalJSON()
		if err != nil {
			zap.L().Warn("server: encode geojson", zap.Error(err))
			return
		}
		_, _ = w.Write(b)
		return
	}

	resp := map[string]any{
		"city_code":    city,
		"display_name": aggregate.DisplayName(city),
		"year":         year,
		"policy":       policy.Name(),
		"summary":      afford.Summarize(income, persona, strategy),
		"stats":        stats,
		"zips":         records,
	}
	if lat, lon, ok := enrich.Center(records); ok {
		resp["center"] = map[string]float64{"lat": lat, "lon": lon}
	}
	if len(records) == 0 {
		resp["message"] = noDataMessage
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.pipeline.Reload(r.Context()); err != nil {
		zap.L().Error("server: reload failed", zap.Error(err))
		writeError(w, r, http.StatusBadGateway, "reload failed")
		return
	}
	t, _ := s.pipeline.Table()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "reloaded",
		"dataset_version": t.Version,
		"rows":            len(t.Rows),
	})
}

// fail maps pipeline errors onto statuses. Data anomalies never reach here;
// these are load, schema, and configuration problems.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var schemaErr *dataset.SchemaError
	switch {
	case errors.Is(err, cache.ErrNotLoaded):
		writeError(w, r, http.StatusServiceUnavailable, "dataset not loaded")
	case errors.As(err, &schemaErr):
		writeError(w, r, http.StatusUnprocessableEntity, schemaErr.Error())
	default:
		zap.L().Error("server: request failed",
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// yearParam parses ?year, defaulting to the latest year in the table.
func (s *Server) yearParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		y, err := s.pipeline.LatestYear()
		if err != nil {
			return 0, errors.New("no years available")
		}
		return y, nil
	}
	y, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("year must be an integer")
	}
	return y, nil
}

// incomeParams resolves ?income and ?persona the way the dashboard slider
// does: explicit income wins, clamped to the slider range.
func incomeParams(r *http.Request) (float64, string, error) {
	var income float64
	if raw := r.URL.Query().Get("income"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return 0, "", errors.New("income must be a non-negative number")
		}
		income = v
	}
	return afford.ResolveIncome(income, r.URL.Query().Get("persona"))
}
