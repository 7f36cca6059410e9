package market

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/gridmate/gridmate/internal/database"
)

// fixedClock pins Now so trade stamps and volume windows are deterministic.
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

// fracRand maps every Uniform draw to the same fraction of [min, max).
// frac 0 always returns min, frac close to 1 always returns near max.
type fracRand struct {
	frac float64
}

func (r fracRand) Uniform(min, max float64) float64 {
	return min + r.frac*(max-min)
}

func setupTestStore(t *testing.T, clock Clock) *Store {
	t.Helper()

	db, err := database.New(database.Config{
		Path: filepath.Join(t.TempDir(), "market.db"),
		Name: "test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db, clock, zerolog.Nop())
	require.NoError(t, err)
	return store
}

func testTime() time.Time {
	return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
}
