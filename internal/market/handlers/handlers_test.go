package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridmate/gridmate/internal/database"
	"github.com/gridmate/gridmate/internal/market"
)

func setupTestRouter(t *testing.T) chi.Router {
	t.Helper()

	db, err := database.New(database.Config{
		Path: filepath.Join(t.TempDir(), "market.db"),
		Name: "test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := market.NewStore(db, market.SystemClock{}, zerolog.Nop())
	require.NoError(t, err)

	clock := market.SystemClock{}
	rng := market.NewRand(1)
	service := market.NewService(market.ServiceConfig{
		Store:      store,
		Simulator:  market.NewSimulator(rng, clock, zerolog.Nop()),
		Engine:     market.NewEngine(clock, zerolog.Nop()),
		Aggregator: market.NewAggregator(clock, rng),
		TickOnRead: false,
		Log:        zerolog.Nop(),
	})

	handlers := NewMarketHandlers(service, zerolog.Nop())
	r := chi.NewRouter()
	r.Route("/api", func(api chi.Router) {
		handlers.RegisterRoutes(api)
	})
	return r
}

func postTrade(t *testing.T, r chi.Router, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/market/trades", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createTestTrade(t *testing.T, r chi.Router) string {
	t.Helper()
	w := postTrade(t, r, `{
		"action": "create",
		"trade": {"buyerId": "mem-beck", "sellerId": "mem-ortiz", "amountKwh": 8, "pricePerKwh": 5.5}
	}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Trade market.Trade `json:"trade"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotEmpty(t, resp.Trade.ID)
	return resp.Trade.ID
}

func TestHandleGetSnapshot(t *testing.T) {
	r := setupTestRouter(t)

	req := httptest.NewRequest("GET", "/api/market/snapshot", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var snapshot market.MarketSnapshot
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snapshot))
	assert.Len(t, snapshot.Communities, 3)
}

func TestHandleGetSnapshot_MemberHeaderResolvesMembership(t *testing.T) {
	r := setupTestRouter(t)

	req := httptest.NewRequest("GET", "/api/market/snapshot", nil)
	req.Header.Set("X-Member-Id", "mem-novak")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var snapshot market.MarketSnapshot
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snapshot))
	assert.Equal(t, "com-hilltop", snapshot.UserMembership.CommunityID)
}

func TestHandlePostTrade_CreateExecuteFlow(t *testing.T) {
	r := setupTestRouter(t)
	tradeID := createTestTrade(t, r)

	w := postTrade(t, r, fmt.Sprintf(`{"action": "execute", "trade": {"id": %q}}`, tradeID))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Trade    market.Trade           `json:"trade"`
		Snapshot market.MarketSnapshot  `json:"snapshot"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, market.StatusSettled, resp.Trade.Status)
	require.NotNil(t, resp.Snapshot.FindTrade(tradeID))
	assert.Equal(t, market.StatusSettled, resp.Snapshot.FindTrade(tradeID).Status)
}

func TestHandlePostTrade_ValidationError(t *testing.T) {
	r := setupTestRouter(t)

	w := postTrade(t, r, `{
		"action": "create",
		"trade": {"buyerId": "", "sellerId": "mem-ortiz", "amountKwh": 8, "pricePerKwh": 5.5}
	}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlePostTrade_NotFound(t *testing.T) {
	r := setupTestRouter(t)

	w := postTrade(t, r, `{"action": "execute", "trade": {"id": "no-such-trade"}}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlePostTrade_Conflict(t *testing.T) {
	r := setupTestRouter(t)
	tradeID := createTestTrade(t, r)

	w := postTrade(t, r, fmt.Sprintf(`{"action": "execute", "trade": {"id": %q}}`, tradeID))
	require.Equal(t, http.StatusOK, w.Code)

	w = postTrade(t, r, fmt.Sprintf(`{"action": "cancel", "trade": {"id": %q}}`, tradeID))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandlePostTrade_BadRequests(t *testing.T) {
	r := setupTestRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"unknown action", `{"action": "explode", "trade": {"id": "x"}}`},
		{"execute without id", `{"action": "execute", "trade": {}}`},
		{"cancel without id", `{"action": "cancel", "trade": {}}`},
		{"malformed json", `{"action": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postTrade(t, r, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHandleGetTrades_StatusFilter(t *testing.T) {
	r := setupTestRouter(t)
	tradeID := createTestTrade(t, r)
	createTestTrade(t, r)

	w := postTrade(t, r, fmt.Sprintf(`{"action": "execute", "trade": {"id": %q}}`, tradeID))
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest("GET", "/api/market/trades?status=Settled", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Trades []market.Trade `json:"trades"`
		Count  int            `json:"count"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Trades, 1)
	assert.Equal(t, tradeID, resp.Trades[0].ID)
}

func TestHandleGetTrades_InvalidStatus(t *testing.T) {
	r := setupTestRouter(t)

	req := httptest.NewRequest("GET", "/api/market/trades?status=Teleported", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGetMarketData(t *testing.T) {
	r := setupTestRouter(t)

	req := httptest.NewRequest("GET", "/api/market/stats", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var stats market.MarketStats
	require.NoError(t, json.NewDecoder(w.Body).Decode(&stats))
	// No settled trades yet, so the fallback price applies
	assert.Equal(t, 5.5, stats.CurrentPrice)
}

func TestHandleGetPortfolio(t *testing.T) {
	r := setupTestRouter(t)
	tradeID := createTestTrade(t, r)
	w := postTrade(t, r, fmt.Sprintf(`{"action": "execute", "trade": {"id": %q}}`, tradeID))
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest("GET", "/api/market/portfolio?memberId=mem-beck", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var portfolio market.Portfolio
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&portfolio))
	assert.Equal(t, "mem-beck", portfolio.MemberID)
	assert.InDelta(t, 8.0, portfolio.BoughtEnergy, 1e-9)
	assert.InDelta(t, 44.0, portfolio.TotalSpent, 1e-9)
}

func TestHandleGetPortfolio_HeaderFallback(t *testing.T) {
	r := setupTestRouter(t)

	req := httptest.NewRequest("GET", "/api/market/portfolio", nil)
	req.Header.Set("X-Member-Id", "mem-beck")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleGetPortfolio_MissingMember(t *testing.T) {
	r := setupTestRouter(t)

	req := httptest.NewRequest("GET", "/api/market/portfolio", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleReset(t *testing.T) {
	r := setupTestRouter(t)
	createTestTrade(t, r)

	req := httptest.NewRequest("POST", "/api/market/reset", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var snapshot market.MarketSnapshot
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snapshot))
	assert.Empty(t, snapshot.RecentTrades)
}
