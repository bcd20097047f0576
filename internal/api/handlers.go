package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mohamedkhairy/commodity-dashboard/internal/impact"
	"github.com/mohamedkhairy/commodity-dashboard/internal/models"
	"github.com/mohamedkhairy/commodity-dashboard/internal/news"
	"github.com/mohamedkhairy/commodity-dashboard/internal/pipeline"
	"github.com/mohamedkhairy/commodity-dashboard/internal/pubsub"
	"github.com/mohamedkhairy/commodity-dashboard/internal/storage"
	"github.com/mohamedkhairy/commodity-dashboard/pkg/logger"
)

// DashboardHandler serves the dashboard surfaces: the commodity table,
// the KPI cards, the movers chart feed, the normalization report and
// the manual refresh trigger.
type DashboardHandler struct {
	service        *pipeline.Service
	publisher      pubsub.Client
	refreshChannel string
}

// NewDashboardHandler creates a new dashboard handler. The publisher is
// optional; without one, manual refreshes are not fanned out.
func NewDashboardHandler(service *pipeline.Service, publisher pubsub.Client, refreshChannel string) *DashboardHandler {
	return &DashboardHandler{
		service:        service,
		publisher:      publisher,
		refreshChannel: refreshChannel,
	}
}

// filterFromQuery maps the sidebar filter query parameters onto a table
// filter. Unknown change types are rejected before filtering.
func filterFromQuery(r *http.Request) (pipeline.TableFilter, error) {
	filter := pipeline.TableFilter{
		Sector:      r.URL.Query().Get("sector"),
		Nation:      r.URL.Query().Get("nation"),
		ChangeType:  r.URL.Query().Get("change_type"),
		CommodityID: r.URL.Query().Get("commodity"),
	}
	if filter.ChangeType != "" {
		if err := models.ChangeType(filter.ChangeType).Validate(); err != nil {
			return pipeline.TableFilter{}, err
		}
	}
	return filter, nil
}

// GetTable handles GET /api/v1/dashboard/table
func (h *DashboardHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid change_type")
		return
	}

	snap, err := h.service.Load(r.Context())
	if err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "Dashboard data unavailable")
		return
	}

	rows := pipeline.FilterRows(snap.Table, filter)
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"latest_date":  snap.LatestDate,
		"refreshed_at": snap.RefreshedAt,
		"rows":         rows,
		"count":        len(rows),
	})
}

// GetKpis handles GET /api/v1/dashboard/kpis. The KPI cards honor the
// same sidebar filters as the table.
func (h *DashboardHandler) GetKpis(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid change_type")
		return
	}

	kpis, err := h.service.KpisFor(r.Context(), filter)
	if err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "Dashboard data unavailable")
		return
	}

	respondWithJSON(w, http.StatusOK, kpis)
}

// GetMovers handles GET /api/v1/dashboard/movers
func (h *DashboardHandler) GetMovers(w http.ResponseWriter, r *http.Request) {
	window, err := windowFromQuery(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid window")
		return
	}

	movers, err := h.service.Movers(r.Context(), window)
	if err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "Dashboard data unavailable")
		return
	}

	respondWithJSON(w, http.StatusOK, movers)
}

// GetReport handles GET /api/v1/dashboard/report
func (h *DashboardHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Load(r.Context())
	if err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "Dashboard data unavailable")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"report":       snap.Report,
		"has_warnings": snap.Report.HasWarnings(),
		"source":       snap.Source,
		"refreshed_at": snap.RefreshedAt,
	})
}

// GetFilters handles GET /api/v1/dashboard/filters
func (h *DashboardHandler) GetFilters(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Load(r.Context())
	if err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "Dashboard data unavailable")
		return
	}

	respondWithJSON(w, http.StatusOK, pipeline.Options(snap.Table))
}

// Refresh handles POST /api/v1/dashboard/refresh. It recomputes the
// snapshot immediately and announces the new one on the refresh
// channel so connected dashboards reload.
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Refresh(r.Context())
	if err != nil {
		logger.Error("Manual refresh failed", logger.ErrorField(err))
		respondWithError(w, http.StatusBadGateway, "Refresh failed")
		return
	}

	event := models.RefreshEvent{
		ID:         uuid.New().String(),
		Trigger:    models.RefreshTriggerManual,
		LatestDate: snap.LatestDate,
		Timestamp:  time.Now().UTC(),
	}

	if h.publisher != nil {
		// Fan-out failure is not a refresh failure; the snapshot is
		// already recomputed and served
		pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := h.publisher.Publish(pubCtx, h.refreshChannel, event); err != nil {
			logger.Warn("Failed to publish refresh event",
				logger.ErrorField(err),
				logger.String("channel", h.refreshChannel),
			)
		}
		cancel()
	}

	logger.Info("Manual refresh complete",
		logger.String("event_id", event.ID),
		logger.Int("commodities", len(snap.Records)),
	)

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"event":        event,
		"commodities":  len(snap.Records),
		"latest_date":  snap.LatestDate,
		"refreshed_at": snap.RefreshedAt,
		"report":       snap.Report,
	})
}

// CommodityHandler serves per-commodity endpoints: metadata, change
// records, impact labels, price series and related news.
type CommodityHandler struct {
	service *pipeline.Service
	news    *news.Collector
}

// NewCommodityHandler creates a new commodity handler. The news
// collector is optional; without one, the news endpoint degrades to an
// empty list.
func NewCommodityHandler(service *pipeline.Service, collector *news.Collector) *CommodityHandler {
	return &CommodityHandler{
		service: service,
		news:    collector,
	}
}

// ListCommodities handles GET /api/v1/commodities
func (h *CommodityHandler) ListCommodities(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Load(r.Context())
	if err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "Dashboard data unavailable")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"commodities": snap.Meta,
		"count":       len(snap.Meta),
	})
}

// GetCommodity handles GET /api/v1/commodities/{id}
func (h *CommodityHandler) GetCommodity(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	commodityID := vars["id"]

	snap, err := h.service.Load(r.Context())
	if err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "Dashboard data unavailable")
		return
	}

	meta, ok := snap.MetaFor(commodityID)
	if !ok {
		respondWithError(w, http.StatusNotFound, "Commodity not found")
		return
	}

	// Record may be missing when the commodity has no observation at or
	// before the latest date; the meta row alone is still served
	record := snap.Records[commodityID]

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"meta":   meta,
		"record": record,
	})
}

// GetLabels handles GET /api/v1/commodities/{id}/labels
func (h *CommodityHandler) GetLabels(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	commodityID := vars["id"]

	window, err := windowFromQuery(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid window")
		return
	}

	label, err := h.service.Labels(r.Context(), commodityID, window)
	if err != nil {
		respondWithPipelineError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"label":      label,
		"annotation": impact.Annotation(label),
	})
}

// GetSeries handles GET /api/v1/commodities/{id}/series
func (h *CommodityHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	commodityID := vars["id"]
	interval := r.URL.Query().Get("interval")

	points, err := h.service.Series(r.Context(), commodityID, interval)
	if err != nil {
		respondWithPipelineError(w, err)
		return
	}

	if interval == "" {
		interval = pipeline.IntervalDaily
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"commodity_id": commodityID,
		"interval":     interval,
		"points":       points,
		"count":        len(points),
	})
}

// GetNews handles GET /api/v1/commodities/{id}/news. News is a side
// panel: when feeds fail or no collector is wired, the endpoint
// degrades to an empty list instead of failing the dashboard.
func (h *CommodityHandler) GetNews(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	commodityID := vars["id"]
	perStock := parseIntQuery(r, "limit", 0, 1, 10)

	snap, err := h.service.Load(r.Context())
	if err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "Dashboard data unavailable")
		return
	}

	meta, ok := snap.MetaFor(commodityID)
	if !ok {
		respondWithError(w, http.StatusNotFound, "Commodity not found")
		return
	}

	items := []models.NewsItem{}
	if h.news != nil {
		fetched, err := h.news.ImpactNews(r.Context(), meta, perStock)
		if err != nil {
			logger.Warn("Impact news fetch failed",
				logger.ErrorField(err),
				logger.String("commodity_id", commodityID),
			)
		} else {
			items = fetched
		}
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"commodity_id": commodityID,
		"items":        items,
		"count":        len(items),
	})
}

// RefreshRunsHandler serves the refresh audit trail recorded by the
// refresher service.
type RefreshRunsHandler struct {
	runLog storage.RefreshLogStorage
}

// NewRefreshRunsHandler creates a new refresh runs handler. The run log
// is optional; without one the history endpoints report unavailable.
func NewRefreshRunsHandler(runLog storage.RefreshLogStorage) *RefreshRunsHandler {
	return &RefreshRunsHandler{runLog: runLog}
}

// ListRuns handles GET /api/v1/refresh/runs
func (h *RefreshRunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runLog == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Refresh history not available")
		return
	}

	filter := storage.RunFilter{
		Trigger: r.URL.Query().Get("trigger"),
		Status:  r.URL.Query().Get("status"),
		Limit:   parseIntQuery(r, "limit", 50, 1, 500),
		Offset:  parseIntQuery(r, "offset", 0, 0, 10000),
	}

	if startStr := r.URL.Query().Get("start_time"); startStr != "" {
		if start, err := time.Parse(time.RFC3339, startStr); err == nil {
			filter.StartTime = start
		}
	}
	if endStr := r.URL.Query().Get("end_time"); endStr != "" {
		if end, err := time.Parse(time.RFC3339, endStr); err == nil {
			filter.EndTime = end
		}
	}

	runs, err := h.runLog.GetRuns(r.Context(), filter)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve refresh runs")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"runs":   runs,
		"count":  len(runs),
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// GetRun handles GET /api/v1/refresh/runs/{id}
func (h *RefreshRunsHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runLog == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Refresh history not available")
		return
	}

	vars := mux.Vars(r)
	runID := vars["id"]

	run, err := h.runLog.GetRun(r.Context(), runID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve refresh run")
		return
	}
	if run == nil {
		respondWithError(w, http.StatusNotFound, "Refresh run not found")
		return
	}

	respondWithJSON(w, http.StatusOK, run)
}

// Helper functions

// windowFromQuery reads the window query parameter, defaulting to
// weekly, the window the dashboard charts open on.
func windowFromQuery(r *http.Request) (models.Window, error) {
	window := models.Window(r.URL.Query().Get("window"))
	if window == "" {
		window = models.WindowWeekly
	}
	if err := window.Validate(); err != nil {
		return "", err
	}
	return window, nil
}

// respondWithPipelineError maps pipeline errors onto HTTP statuses
func respondWithPipelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrUnknownCommodity):
		respondWithError(w, http.StatusNotFound, "Commodity not found")
	case errors.Is(err, models.ErrInvalidWindow):
		respondWithError(w, http.StatusBadRequest, "Invalid window")
	case errors.Is(err, models.ErrInvalidInterval):
		respondWithError(w, http.StatusBadRequest, "Invalid interval")
	default:
		logger.Error("Request failed", logger.ErrorField(err))
		respondWithError(w, http.StatusServiceUnavailable, "Dashboard data unavailable")
	}
}

func parseIntQuery(r *http.Request, key string, defaultValue, min, max int) int {
	valueStr := r.URL.Query().Get(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil || value < min || value > max {
		return defaultValue
	}
	return value
}
