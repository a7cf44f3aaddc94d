package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"donor-crm/internal/core/postgres/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

// NewDB opens a migrated in-memory sqlite database private to t.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb_%d?mode=memory&cache=shared", dbSeq.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), repository.Config())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a shared-cache memory db lives as long as one connection does
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, repository.Migrate(db))
	return db
}

// Clock is a settable time source
type Clock struct {
	now atomic.Pointer[time.Time]
}

func NewClock(at time.Time) *Clock {
	c := &Clock{}
	c.Set(at)
	return c
}

func (c *Clock) Now() time.Time {
	return *c.now.Load()
}

func (c *Clock) Set(at time.Time) {
	at = at.UTC()
	c.now.Store(&at)
}

func (c *Clock) Advance(d time.Duration) {
	c.Set(c.Now().Add(d))
}
