package database

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Metrics accumulates query counters for the database manager.
type Metrics struct {
	mu             sync.RWMutex
	logger         *zap.Logger
	queryCount     int64
	errorCount     int64
	slowQueryCount int64
	totalDuration  time.Duration
	byKind         map[string]int64
	startTime      time.Time
}

// MetricsSnapshot is a point-in-time copy of the accumulated counters.
type MetricsSnapshot struct {
	QueryCount       int64            `json:"query_count"`
	ErrorCount       int64            `json:"error_count"`
	SlowQueryCount   int64            `json:"slow_query_count"`
	AvgQueryDuration time.Duration    `json:"avg_query_duration"`
	QueriesByKind    map[string]int64 `json:"queries_by_kind"`
	Uptime           time.Duration    `json:"uptime"`
}

// NewMetrics creates a metrics accumulator.
func NewMetrics(logger *zap.Logger) *Metrics {
	return &Metrics{
		logger:    logger,
		byKind:    make(map[string]int64),
		startTime: time.Now(),
	}
}

// RecordQuery records one query execution.
func (m *Metrics) RecordQuery(kind string, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queryCount++
	m.totalDuration += duration
	m.byKind[kind]++

	if err != nil {
		m.errorCount++
	}
	if duration > 100*time.Millisecond {
		m.slowQueryCount++
	}
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byKind := make(map[string]int64, len(m.byKind))
	for k, v := range m.byKind {
		byKind[k] = v
	}

	var avg time.Duration
	if m.queryCount > 0 {
		avg = m.totalDuration / time.Duration(m.queryCount)
	}

	return &MetricsSnapshot{
		QueryCount:       m.queryCount,
		ErrorCount:       m.errorCount,
		SlowQueryCount:   m.slowQueryCount,
		AvgQueryDuration: avg,
		QueriesByKind:    byKind,
		Uptime:           time.Since(m.startTime),
	}
}
