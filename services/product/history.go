package product

import (
	"fmt"
	"sync"
	"time"
)

// historyRecord is one parse outcome kept for diagnostics.
type historyRecord struct {
	URL      string
	Success  bool
	Duration time.Duration
	When     time.Time
}

// parseHistory is a fixed-capacity insertion-order record of recent
// parses. When full, the oldest record is evicted.
type parseHistory struct {
	mu       sync.Mutex
	capacity int
	records  []historyRecord
}

func newParseHistory(capacity int) *parseHistory {
	if capacity < 1 {
		capacity = 1
	}
	return &parseHistory{capacity: capacity}
}

func (h *parseHistory) record(url string, success bool, duration time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.records) >= h.capacity {
		h.records = h.records[1:]
	}
	h.records = append(h.records, historyRecord{
		URL:      url,
		Success:  success,
		Duration: duration,
		When:     time.Now(),
	})
}

// Stats summarizes the recorded window.
type Stats struct {
	Total       int    `json:"total"`
	Success     int    `json:"success"`
	Failure     int    `json:"failure"`
	SuccessRate string `json:"successRate"`
	AvgDuration string `json:"avgDuration"`
}

func (h *parseHistory) stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	total := len(h.records)
	success := 0
	var totalDuration time.Duration
	for _, r := range h.records {
		if r.Success {
			success++
		}
		totalDuration += r.Duration
	}

	stats := Stats{
		Total:       total,
		Success:     success,
		Failure:     total - success,
		SuccessRate: "0%",
		AvgDuration: "0ms",
	}
	if total > 0 {
		stats.SuccessRate = fmt.Sprintf("%.1f%%", float64(success)/float64(total)*100)
		stats.AvgDuration = fmt.Sprintf("%dms", (totalDuration / time.Duration(total)).Milliseconds())
	}
	return stats
}
