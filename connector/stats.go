package connector

import (
	"database/sql"
	"time"
)

// ConnectionStats represents database connection pool statistics.
type ConnectionStats struct {
	OpenConnections int
	InUse           int
	Idle            int
	WaitCount       int64
	WaitDuration    time.Duration
}

func statsFromDB(s sql.DBStats) ConnectionStats {
	return ConnectionStats{
		OpenConnections: s.OpenConnections,
		InUse:           s.InUse,
		Idle:            s.Idle,
		WaitCount:       s.WaitCount,
		WaitDuration:    s.WaitDuration,
	}
}

// add sums two snapshots, for clusters.
func (s ConnectionStats) add(o ConnectionStats) ConnectionStats {
	s.OpenConnections += o.OpenConnections
	s.InUse += o.InUse
	s.Idle += o.Idle
	s.WaitCount += o.WaitCount
	s.WaitDuration += o.WaitDuration
	return s
}
