package api

import (
	"net/http"
	"runtime"
	"time"

	rfbridge "github.com/nerrad567/gray-logic-rf433/internal/bridges/rf433"
	"github.com/nerrad567/gray-logic-rf433/internal/rf433"
)

// StatsResponse is the body of GET /api/v1/stats.
type StatsResponse struct {
	Timestamp string                 `json:"timestamp"`
	Receiver  rf433.Stats            `json:"receiver"`
	Bridge    rfbridge.BridgeMetrics `json:"bridge"`
}

// SystemMetrics is the body of GET /api/v1/metrics.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	WebSocket     WSMetrics        `json:"websocket"`
	Database      *DatabaseMetrics `json:"database,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int    `json:"connected_clients"`
	Broadcasts       uint64 `json:"broadcasts"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

const bytesPerMB = 1024 * 1024

// handleStats returns the decoder counters and the bridge counters.
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatsResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Receiver:  s.receiver.Stats(),
		Bridge:    s.bridge.Metrics(),
	})
}

// handleMetrics returns process-level metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / bytesPerMB,
			MemoryTotalMB: float64(memStats.TotalAlloc) / bytesPerMB,
			NumGC:         memStats.NumGC,
		},
	}

	hub := s.Hub()
	metrics.WebSocket = WSMetrics{
		ConnectedClients: hub.ClientCount(),
		Broadcasts:       hub.Broadcasts(),
	}

	if s.db != nil {
		dbStats := s.db.Stats()
		metrics.Database = &DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
