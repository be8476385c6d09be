package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolStatter is implemented by *pgxpool.Pool.
type PoolStatter interface {
	Stat() *pgxpool.Stat
}

// RecordDBPoolMetrics copies the pool's current counters into the pool gauges.
func RecordDBPoolMetrics(pool PoolStatter) {
	stats := pool.Stat()

	for state, n := range map[string]int32{
		"in_use":       stats.AcquiredConns(),
		"idle":         stats.IdleConns(),
		"constructing": stats.ConstructingConns(),
		"max":          stats.MaxConns(),
	} {
		DBPoolConnections.WithLabelValues(state).Set(float64(n))
	}
	DBPoolAcquireWait.Set(stats.AcquireDuration().Seconds())
}
