package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridmate/gridmate/internal/database"
	"github.com/gridmate/gridmate/internal/live"
	"github.com/gridmate/gridmate/internal/market"
	markethandlers "github.com/gridmate/gridmate/internal/market/handlers"
)

func setupTestServer(t *testing.T) *Server {
	t.Helper()

	dataDir := t.TempDir()
	db, err := database.New(database.Config{
		Path: filepath.Join(dataDir, "market.db"),
		Name: "test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := market.SystemClock{}
	rng := market.NewRand(1)
	store, err := market.NewStore(db, clock, zerolog.Nop())
	require.NoError(t, err)

	service := market.NewService(market.ServiceConfig{
		Store:      store,
		Simulator:  market.NewSimulator(rng, clock, zerolog.Nop()),
		Engine:     market.NewEngine(clock, zerolog.Nop()),
		Aggregator: market.NewAggregator(clock, rng),
		TickOnRead: false,
		Log:        zerolog.Nop(),
	})

	return New(Config{
		Port:           0,
		Log:            zerolog.Nop(),
		DevMode:        true,
		DB:             db,
		MarketHandlers: markethandlers.NewMarketHandlers(service, zerolog.Nop()),
		LiveHub:        live.NewHub(service, clock, zerolog.Nop()),
		SystemHandlers: NewSystemHandlers(db, store, dataDir, zerolog.Nop()),
	})
}

func TestHealthEndpoint(t *testing.T) {
	srv := setupTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMarketRoutesMounted(t *testing.T) {
	srv := setupTestServer(t)

	req := httptest.NewRequest("GET", "/api/market/snapshot", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var snapshot market.MarketSnapshot
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snapshot))
	assert.Len(t, snapshot.Communities, 3)
}

func TestLiveAssetsRouteMounted(t *testing.T) {
	srv := setupTestServer(t)

	req := httptest.NewRequest("GET", "/api/live/assets", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var frame live.Frame
	require.NoError(t, json.NewDecoder(w.Body).Decode(&frame))
	assert.Len(t, frame.Assets, 3)
}

func TestSystemStatusRouteMounted(t *testing.T) {
	srv := setupTestServer(t)

	req := httptest.NewRequest("GET", "/api/system/status", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var status map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.Contains(t, status, "uptime_seconds")
}

func TestUnknownRoute(t *testing.T) {
	srv := setupTestServer(t)

	req := httptest.NewRequest("GET", "/api/nope", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
