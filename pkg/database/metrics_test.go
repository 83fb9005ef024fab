package database

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStats struct{}

func (fakeStats) AcquiredConns() int32 { return 2 }
func (fakeStats) IdleConns() int32 { return 3 }
func (fakeStats) TotalConns() int32 { return 5 }
func (fakeStats) MaxConns() int32 { return 8 }
func (fakeStats) AcquireCount() int64 { return 42 }
func (fakeStats) AcquireDuration() time.Duration { return 1500 * time.Millisecond }

func TestPoolStatsCollector_Describe(t *testing.T) {
	c := newPoolStatsCollector(func() poolStats { return fakeStats{} }, "catalog")

	ch := make(chan *prometheus.Desc, 10)
	c.Describe(ch)
	close(ch)

	n := 0
	for range ch {
		n++
	}
	assert.Equal(t, 6, n)
}

func TestPoolStatsCollector_Collect(t *testing.T) {
	c := newPoolStatsCollector(func() poolStats { return fakeStats{} }, "catalog")

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))

	expected := `
# HELP search_db_pool_total_connections Total number of connections in the pool
# TYPE search_db_pool_total_connections gauge
search_db_pool_total_connections{pool="catalog"} 5
# HELP search_db_pool_acquire_duration_seconds_total Total time spent acquiring connections in seconds
# TYPE search_db_pool_acquire_duration_seconds_total counter
search_db_pool_acquire_duration_seconds_total{pool="catalog"} 1.5
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"search_db_pool_total_connections", "search_db_pool_acquire_duration_seconds_total")
	assert.NoError(t, err)
}

func TestPoolStatsCollector_ImplementsCollector(t *testing.T) {
	var _ prometheus.Collector = NewPoolStatsCollector(nil, "catalog")
}
