package metrics

import (
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
)

// Memory metric names.
const (
	HeapAllocMB = "heap_alloc_mb"
	SysMB       = "sys_mb"
	NumGC       = "num_gc"
)

const mb = 1024 * 1024

// MemoryStats reads the Go runtime memory counters without forcing a GC.
// Native Mat memory is not included.
func MemoryStats() map[string]float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return map[string]float64{
		HeapAllocMB: float64(m.Alloc) / mb,
		SysMB:       float64(m.Sys) / mb,
		NumGC:       float64(m.NumGC),
	}
}

// LogMemorySummary writes the final memory counters at debug level.
func LogMemorySummary(logger logrus.FieldLogger) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	logger.WithFields(logrus.Fields{
		"alloc_mb":       float64(m.Alloc) / mb,
		"total_alloc_mb": float64(m.TotalAlloc) / mb,
		"sys_mb":         float64(m.Sys) / mb,
		"num_gc":         m.NumGC,
		"last_gc":        time.Unix(0, int64(m.LastGC)).Format(time.RFC3339),
	}).Debug("Memory summary")
}
