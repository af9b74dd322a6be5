package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type shelfRow struct {
	ID   uint
	Name string
}

func TestInstrumentGORM_RecordsLatency(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, InstrumentGORM(db))
	require.NoError(t, db.AutoMigrate(&shelfRow{}))

	before := testutil.CollectAndCount(DatabaseQueryLatency)

	require.NoError(t, db.Create(&shelfRow{Name: "a"}).Error)
	var got shelfRow
	require.NoError(t, db.First(&got).Error)

	assert.Greater(t, testutil.CollectAndCount(DatabaseQueryLatency), before)
	assert.Equal(t, "a", got.Name)
}
