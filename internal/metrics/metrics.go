package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	RunsStarted          int64
	RunsSucceeded        int64
	RunsFailed           int64
	ArticlesFound        int64
	ArticlesSaved        int64
	DuplicatesSkipped    int64
	ScrapeFailures       int64
	LLMCalls             int64
	FallbackDigests      int64
	TelegramMessagesSent int64

	// Timings
	LastRunDuration    time.Duration
	AverageRunDuration time.Duration
	TotalRunDuration   time.Duration
	RunCount           int64

	// Status
	LastRunTime   time.Time
	LastStatus    string
	LastSessionID int64
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = New()

func New() *Metrics {
	return &Metrics{IsHealthy: true}
}

func (m *Metrics) RunStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RunsStarted++
}

// RunFinished records the outcome of a pipeline run. A failed run marks the
// process unhealthy until the next successful one.
func (m *Metrics) RunFinished(status string, success bool, sessionID int64, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastRunTime = time.Now()
	m.LastStatus = status
	m.LastRunDuration = duration
	m.TotalRunDuration += duration
	m.RunCount++
	m.AverageRunDuration = m.TotalRunDuration / time.Duration(m.RunCount)

	if success {
		m.RunsSucceeded++
		m.LastSessionID = sessionID
		m.IsHealthy = true
	}
}

func (m *Metrics) AddCollected(found, skipped, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesFound += int64(found)
	m.DuplicatesSkipped += int64(skipped)
	m.ScrapeFailures += int64(failed)
}

func (m *Metrics) AddSaved(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesSaved += int64(n)
}

func (m *Metrics) AddLLMCalls(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LLMCalls += n
}

func (m *Metrics) IncrementFallbackDigests() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FallbackDigests++
}

func (m *Metrics) AddTelegramMessagesSent(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TelegramMessagesSent += int64(n)
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RunsFailed++
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.IsHealthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"runs_started":            m.RunsStarted,
		"runs_succeeded":          m.RunsSucceeded,
		"runs_failed":             m.RunsFailed,
		"articles_found":          m.ArticlesFound,
		"articles_saved":          m.ArticlesSaved,
		"duplicates_skipped":      m.DuplicatesSkipped,
		"scrape_failures":         m.ScrapeFailures,
		"llm_calls":               m.LLMCalls,
		"fallback_digests":        m.FallbackDigests,
		"telegram_messages_sent":  m.TelegramMessagesSent,
		"last_run_duration_ms":    m.LastRunDuration.Milliseconds(),
		"average_run_duration_ms": m.AverageRunDuration.Milliseconds(),
		"last_run_time":           formatTime(m.LastRunTime),
		"last_status":             m.LastStatus,
		"last_session_id":         m.LastSessionID,
		"last_error_time":         formatTime(m.LastErrorTime),
		"last_error":              m.LastError,
		"is_healthy":              m.IsHealthy,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
