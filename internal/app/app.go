// Package app wires the harvesting pipeline and runs one session.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/deusflow/aznews/internal/cache"
	"github.com/deusflow/aznews/internal/chatgpt"
	"github.com/deusflow/aznews/internal/collector"
	"github.com/deusflow/aznews/internal/config"
	"github.com/deusflow/aznews/internal/dedup"
	"github.com/deusflow/aznews/internal/fetcher"
	"github.com/deusflow/aznews/internal/gemini"
	"github.com/deusflow/aznews/internal/intel"
	"github.com/deusflow/aznews/internal/llm"
	"github.com/deusflow/aznews/internal/logger"
	"github.com/deusflow/aznews/internal/metrics"
	"github.com/deusflow/aznews/internal/ratelimit"
	"github.com/deusflow/aznews/internal/report"
	"github.com/deusflow/aznews/internal/sources"
	"github.com/deusflow/aznews/internal/storage"
	"github.com/deusflow/aznews/internal/telegram"
)

// Overrides narrow a run from the command line.
type Overrides struct {
	Sources []string // source names; empty means every enabled source
	Pages   int      // listing pages per category; 0 keeps the configured value
}

// Run performs one session with real dependencies. It returns an error
// only when the run could not start; everything after that, and an
// interrupt during startup, is reported through Telegram and the logs.
func Run(ctx context.Context, cfg *config.Config, ov Overrides) error {
	tg := telegram.New(cfg.TelegramToken, telegram.Options{})
	reporter := report.New(tg, cfg.OpsChatIDs, cfg.PublicChatIDs)

	start := time.Now()
	startupFailed := func(msg string, err error) error {
		return abortStartup(ctx, reporter, metrics.Global, start, msg, err)
	}

	list, err := config.LoadSources(cfg.SourcesConfigPath)
	if err != nil {
		return startupFailed("failed to load sources", err)
	}

	f := fetcher.New(fetcher.Options{Concurrency: cfg.FetchConcurrency, Timeout: cfg.FetchTimeout})
	jobs, err := BuildJobs(f, list, ov)
	if err != nil {
		return startupFailed("invalid source selection", err)
	}

	store, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return startupFailed("Failed to connect to database", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close database", "error", err)
		}
	}()

	known, closeKnown := knownURLs(ctx, cfg)
	defer closeKnown()
	gate := dedup.New(store, known)

	model, closeModel := newModel(ctx, cfg)
	defer closeModel()
	limiter := ratelimit.PerMinute(cfg.LLMRequestsPerMinute)

	p := NewPipeline(Deps{
		Collector: collector.New(gate, collector.Options{
			BatchSize:  cfg.ScrapeBatchSize,
			BatchPause: cfg.ScrapeBatchPause,
		}),
		Gate: gate,
		Summarizer: intel.New(model, limiter, intel.Options{
			FilterBatch:       cfg.LLMFilterBatch,
			DigestMaxArticles: cfg.LLMDigestMaxArticles,
			MinRelevant:       cfg.InsufficientMinRelevant,
			MinSubmitted:      cfg.InsufficientMinSubmitted,
		}),
		Store:    store,
		Reporter: reporter,
	})

	res := p.Run(ctx, jobs)
	logger.Info("session complete",
		"run_id", res.RunID,
		"status", res.Status,
		"session_id", res.SessionID,
		"saved", res.Saved,
		"fetcher", f.Stats(),
		"llm", limiter.Stats(),
	)
	return nil
}

// abortStartup ends a run that never reached the pipeline. An interrupt is
// not a failure: it gets an operational report and a nil error, the same as
// an interrupt later in the run.
func abortStartup(ctx context.Context, rep Reporter, m *metrics.Metrics, start time.Time, msg string, err error) error {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
	defer cancel()

	if ctx.Err() != nil {
		logger.Warn("interrupted during startup", "step", msg, "error", err)
		m.AddTelegramMessagesSent(rep.Operational(sendCtx, report.RunReport{
			RunID:  uuid.NewString(),
			Status: report.StatusInterrupted,
			Start:  start,
			End:    time.Now(),
			Errors: []string{"Scraping interrupted"},
		}))
		return nil
	}

	err = fmt.Errorf("%s: %w", msg, err)
	logger.Error("startup failed", "error", err)
	m.SetError(err.Error())
	m.AddTelegramMessagesSent(rep.ErrorAlert(sendCtx, err.Error()))
	return err
}

// BuildJobs turns the sources file and overrides into collector jobs in
// file order.
func BuildJobs(f sources.Fetcher, list []config.Source, ov Overrides) ([]collector.Job, error) {
	selected := config.Enabled(list)
	if len(ov.Sources) > 0 {
		selected = nil
		for _, name := range ov.Sources {
			s, ok := findSource(list, name)
			if !ok {
				s = config.Source{Name: name, Enabled: true, Pages: 1}
			}
			selected = append(selected, s)
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no sources enabled")
	}

	jobs := make([]collector.Job, 0, len(selected))
	for _, s := range selected {
		adapter, err := sources.ByName(f, s.Name)
		if err != nil {
			return nil, err
		}
		pages := s.Pages
		if ov.Pages > 0 {
			pages = ov.Pages
		}
		jobs = append(jobs, collector.Job{Adapter: adapter, Pages: pages})
	}
	return jobs, nil
}

func findSource(list []config.Source, name string) (config.Source, bool) {
	want := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".az")
	for _, s := range list {
		if strings.TrimSuffix(strings.ToLower(s.Name), ".az") == want {
			s.Enabled = true
			return s, true
		}
	}
	return config.Source{}, false
}

// knownURLs picks Redis when configured and reachable, else an in-process cache.
func knownURLs(ctx context.Context, cfg *config.Config) (cache.URLs, func()) {
	if cfg.RedisURL != "" {
		r, err := cache.NewRedis(ctx, cfg.RedisURL, cfg.KnownURLTTL)
		if err == nil {
			logger.Info("using Redis known-URL cache")
			return r, func() { r.Close() }
		}
		logger.Warn("Redis unavailable, using in-memory cache", "error", err)
	}
	m := cache.NewMemory(cfg.KnownURLTTL)
	return m, func() { m.Close() }
}

// newModel returns the configured LLM, or nil when AI is disabled or the
// client cannot be created. Gemini wins when both keys are set.
func newModel(ctx context.Context, cfg *config.Config) (llm.Model, func()) {
	switch {
	case cfg.GeminiAPIKey != "":
		c, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("failed to create Gemini client, AI disabled", "error", err)
			return nil, func() {}
		}
		logger.Info("AI summarization enabled", "model", c.Name())
		return c, c.Close
	case cfg.OpenAIAPIKey != "":
		c := chatgpt.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
		logger.Info("AI summarization enabled", "model", c.Name())
		return c, func() {}
	default:
		logger.Warn("no LLM API key set, using fallback digest")
		return nil, func() {}
	}
}
