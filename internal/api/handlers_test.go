package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/mohamedkhairy/commodity-dashboard/internal/cache"
	"github.com/mohamedkhairy/commodity-dashboard/internal/data"
	"github.com/mohamedkhairy/commodity-dashboard/internal/models"
	"github.com/mohamedkhairy/commodity-dashboard/internal/pipeline"
	"github.com/mohamedkhairy/commodity-dashboard/internal/storage"
)

// testTables has a gainer (Iron ore), a loser (Coking coal) and one
// commodity with no metadata (Scrap).
func testTables() *data.RawTables {
	return &data.RawTables{
		Prices: [][]string{
			{"Date", "Commodities", "Price"},
			{"2024-03-01", "Iron ore", "100"},
			{"2024-03-07", "Iron ore", "102"},
			{"2024-03-08", "Iron ore", "105"},
			{"2024-03-01", "Coking coal", "250"},
			{"2024-03-08", "Coking coal", "240"},
			{"2024-03-08", "Scrap", "10"},
		},
		Meta: [][]string{
			{"Commodities", "Sector", "Nation", "Direct Impact", "Inverse Impact"},
			{"Iron ore", "Metals", "Australia", "HPG, HSG", "VJC"},
			{"Coking coal", "Energy", "Australia", "HPG", ""},
		},
	}
}

func testService(t *testing.T) *pipeline.Service {
	t.Helper()
	store := cache.NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	return pipeline.NewService(data.NewMockProvider(testTables()), store, time.Hour)
}

func TestDashboardHandler_GetTable(t *testing.T) {
	handler := NewDashboardHandler(testService(t), nil, "")

	req := httptest.NewRequest("GET", "/api/v1/dashboard/table", nil)
	w := httptest.NewRecorder()

	handler.GetTable(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var response struct {
		Rows  []models.TableRow `json:"rows"`
		Count int               `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Count != 2 {
		t.Errorf("Expected 2 rows, got %d", response.Count)
	}
	if response.Rows[0].CommodityID != "Coking coal" {
		t.Errorf("Expected first row Coking coal, got %s", response.Rows[0].CommodityID)
	}
	if !response.Rows[1].Weekly.Defined {
		t.Error("Expected Iron ore weekly change to be defined")
	}
}

func TestDashboardHandler_GetTable_SectorFilter(t *testing.T) {
	handler := NewDashboardHandler(testService(t), nil, "")

	req := httptest.NewRequest("GET", "/api/v1/dashboard/table?sector=Metals", nil)
	w := httptest.NewRecorder()

	handler.GetTable(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var response struct {
		Rows []models.TableRow `json:"rows"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if len(response.Rows) != 1 || response.Rows[0].CommodityID != "Iron ore" {
		t.Errorf("Expected only Iron ore, got %v", response.Rows)
	}
}

func TestDashboardHandler_GetTable_InvalidChangeType(t *testing.T) {
	handler := NewDashboardHandler(testService(t), nil, "")

	req := httptest.NewRequest("GET", "/api/v1/dashboard/table?change_type=Sideways", nil)
	w := httptest.NewRecorder()

	handler.GetTable(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestDashboardHandler_GetKpis(t *testing.T) {
	handler := NewDashboardHandler(testService(t), nil, "")

	req := httptest.NewRequest("GET", "/api/v1/dashboard/kpis", nil)
	w := httptest.NewRecorder()

	handler.GetKpis(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var kpis models.KpiSet
	if err := json.Unmarshal(w.Body.Bytes(), &kpis); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if kpis.MostBullish == nil || kpis.MostBullish.CommodityID != "Iron ore" {
		t.Errorf("Expected Iron ore most bullish, got %+v", kpis.MostBullish)
	}
	if kpis.MostBearish == nil || kpis.MostBearish.CommodityID != "Coking coal" {
		t.Errorf("Expected Coking coal most bearish, got %+v", kpis.MostBearish)
	}
	if kpis.HighestVolatility != nil {
		t.Error("Expected highest volatility slot to stay unset")
	}
}

func TestDashboardHandler_GetMovers(t *testing.T) {
	handler := NewDashboardHandler(testService(t), nil, "")

	req := httptest.NewRequest("GET", "/api/v1/dashboard/movers?window=weekly", nil)
	w := httptest.NewRecorder()

	handler.GetMovers(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var movers pipeline.MoverGroups
	if err := json.Unmarshal(w.Body.Bytes(), &movers); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if len(movers.Positive) != 1 || movers.Positive[0].CommodityID != "Iron ore" {
		t.Errorf("Expected Iron ore gainer, got %+v", movers.Positive)
	}
	if len(movers.Negative) != 1 || movers.Negative[0].CommodityID != "Coking coal" {
		t.Errorf("Expected Coking coal loser, got %+v", movers.Negative)
	}
}

func TestDashboardHandler_GetMovers_InvalidWindow(t *testing.T) {
	handler := NewDashboardHandler(testService(t), nil, "")

	req := httptest.NewRequest("GET", "/api/v1/dashboard/movers?window=hourly", nil)
	w := httptest.NewRecorder()

	handler.GetMovers(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestDashboardHandler_GetReport(t *testing.T) {
	handler := NewDashboardHandler(testService(t), nil, "")

	req := httptest.NewRequest("GET", "/api/v1/dashboard/report", nil)
	w := httptest.NewRecorder()

	handler.GetReport(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var response struct {
		Report      *models.NormalizeReport `json:"report"`
		HasWarnings bool                    `json:"has_warnings"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	// Scrap has prices but no metadata, so the report must warn
	if !response.HasWarnings {
		t.Error("Expected join warnings in report")
	}
	if len(response.Report.PricesWithoutMeta) != 1 || response.Report.PricesWithoutMeta[0] != "Scrap" {
		t.Errorf("Expected Scrap join warning, got %v", response.Report.PricesWithoutMeta)
	}
}

func TestDashboardHandler_GetFilters(t *testing.T) {
	handler := NewDashboardHandler(testService(t), nil, "")

	req := httptest.NewRequest("GET", "/api/v1/dashboard/filters", nil)
	w := httptest.NewRecorder()

	handler.GetFilters(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var options pipeline.FilterOptions
	if err := json.Unmarshal(w.Body.Bytes(), &options); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if len(options.Sectors) != 2 {
		t.Errorf("Expected 2 sectors, got %v", options.Sectors)
	}
	if len(options.Commodities) != 2 {
		t.Errorf("Expected 2 commodities, got %v", options.Commodities)
	}
}

func TestDashboardHandler_Refresh(t *testing.T) {
	handler := NewDashboardHandler(testService(t), nil, "dashboard.refresh")

	req := httptest.NewRequest("POST", "/api/v1/dashboard/refresh", nil)
	w := httptest.NewRecorder()

	handler.Refresh(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var response struct {
		Event       models.RefreshEvent `json:"event"`
		Commodities int                 `json:"commodities"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Event.ID == "" {
		t.Error("Expected event ID to be generated")
	}
	if response.Event.Trigger != models.RefreshTriggerManual {
		t.Errorf("Expected manual trigger, got %s", response.Event.Trigger)
	}
	if response.Commodities != 3 {
		t.Errorf("Expected 3 commodities, got %d", response.Commodities)
	}
}

func TestCommodityHandler_ListCommodities(t *testing.T) {
	handler := NewCommodityHandler(testService(t), nil)

	req := httptest.NewRequest("GET", "/api/v1/commodities", nil)
	w := httptest.NewRecorder()

	handler.ListCommodities(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var response struct {
		Commodities []models.CommodityMeta `json:"commodities"`
		Count       int                    `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Count != 2 {
		t.Errorf("Expected 2 commodities, got %d", response.Count)
	}
}

func TestCommodityHandler_GetCommodity(t *testing.T) {
	handler := NewCommodityHandler(testService(t), nil)

	req := httptest.NewRequest("GET", "/api/v1/commodities/Iron%20ore", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "Iron ore"})
	w := httptest.NewRecorder()

	handler.GetCommodity(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var response struct {
		Meta   models.CommodityMeta `json:"meta"`
		Record *models.ChangeRecord `json:"record"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Meta.Sector != "Metals" {
		t.Errorf("Expected sector Metals, got %s", response.Meta.Sector)
	}
	if response.Record == nil {
		t.Fatal("Expected change record")
	}
	if response.Record.LatestPrice != 105 {
		t.Errorf("Expected latest price 105, got %f", response.Record.LatestPrice)
	}
}

func TestCommodityHandler_GetCommodity_NotFound(t *testing.T) {
	handler := NewCommodityHandler(testService(t), nil)

	req := httptest.NewRequest("GET", "/api/v1/commodities/Unknown", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "Unknown"})
	w := httptest.NewRecorder()

	handler.GetCommodity(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestCommodityHandler_GetLabels(t *testing.T) {
	handler := NewCommodityHandler(testService(t), nil)

	req := httptest.NewRequest("GET", "/api/v1/commodities/Coking%20coal/labels?window=weekly", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "Coking coal"})
	w := httptest.NewRecorder()

	handler.GetLabels(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var response struct {
		Label      models.ImpactLabel `json:"label"`
		Annotation string             `json:"annotation"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	// Coking coal fell, so its direct-impact stock HPG labels negative
	if len(response.Label.Stocks) != 1 {
		t.Fatalf("Expected 1 stock label, got %d", len(response.Label.Stocks))
	}
	if response.Label.Stocks[0].Direction != models.DirectionNegative {
		t.Errorf("Expected negative direction, got %s", response.Label.Stocks[0].Direction)
	}
	if response.Annotation != "HPG - negative" {
		t.Errorf("Expected annotation 'HPG - negative', got %q", response.Annotation)
	}
}

func TestCommodityHandler_GetSeries(t *testing.T) {
	handler := NewCommodityHandler(testService(t), nil)

	req := httptest.NewRequest("GET", "/api/v1/commodities/Iron%20ore/series?interval=daily", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "Iron ore"})
	w := httptest.NewRecorder()

	handler.GetSeries(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var response struct {
		Points []models.SeriesPoint `json:"points"`
		Count  int                  `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Count != 3 {
		t.Errorf("Expected 3 points, got %d", response.Count)
	}
}

func TestCommodityHandler_GetSeries_InvalidInterval(t *testing.T) {
	handler := NewCommodityHandler(testService(t), nil)

	req := httptest.NewRequest("GET", "/api/v1/commodities/Iron%20ore/series?interval=hourly", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "Iron ore"})
	w := httptest.NewRecorder()

	handler.GetSeries(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestCommodityHandler_GetNews_NoCollector(t *testing.T) {
	handler := NewCommodityHandler(testService(t), nil)

	req := httptest.NewRequest("GET", "/api/v1/commodities/Iron%20ore/news", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "Iron ore"})
	w := httptest.NewRecorder()

	handler.GetNews(w, req)

	// No collector wired: the endpoint degrades to an empty list
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var response struct {
		Items []models.NewsItem `json:"items"`
		Count int               `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Count != 0 || response.Items == nil {
		t.Errorf("Expected empty items list, got %+v", response)
	}
}

func TestRefreshRunsHandler_ListRuns(t *testing.T) {
	runLog := &storage.MockRefreshLog{}
	runLog.RecordRun(context.Background(), &models.RefreshRun{
		ID:        "run-1",
		Trigger:   models.RefreshTriggerSchedule,
		Status:    models.RefreshStatusSuccess,
		StartedAt: time.Now(),
	})
	handler := NewRefreshRunsHandler(runLog)

	req := httptest.NewRequest("GET", "/api/v1/refresh/runs", nil)
	w := httptest.NewRecorder()

	handler.ListRuns(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var response struct {
		Runs  []*models.RefreshRun `json:"runs"`
		Count int                  `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Count != 1 || response.Runs[0].ID != "run-1" {
		t.Errorf("Expected run-1, got %+v", response.Runs)
	}
}

func TestRefreshRunsHandler_NoStorage(t *testing.T) {
	handler := NewRefreshRunsHandler(nil)

	req := httptest.NewRequest("GET", "/api/v1/refresh/runs", nil)
	w := httptest.NewRecorder()

	handler.ListRuns(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
	}
}
