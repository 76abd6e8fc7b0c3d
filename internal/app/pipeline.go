package app

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/deusflow/aznews/internal/collector"
	"github.com/deusflow/aznews/internal/intel"
	"github.com/deusflow/aznews/internal/logger"
	"github.com/deusflow/aznews/internal/metrics"
	"github.com/deusflow/aznews/internal/news"
	"github.com/deusflow/aznews/internal/report"
	"github.com/deusflow/aznews/internal/storage"
)

// reportTimeout bounds the final report sends, which run even after the
// run context was cancelled.
const reportTimeout = 2 * time.Minute

type Collector interface {
	Run(ctx context.Context, jobs []collector.Job) collector.Result
}

type Gate interface {
	Filter(ctx context.Context, articles []news.Article, stats []news.SourceStats) []news.Article
	Remember(ctx context.Context, urls ...string)
}

type Summarizer interface {
	Process(ctx context.Context, articles []news.Article, stats []news.SourceStats) intel.Outcome
	Calls() int64
	QuotaExhausted() bool
}

type Store interface {
	SaveCompleteSession(ctx context.Context, articles []news.Article, summary storage.SessionSummary) (int64, error)
}

type Reporter interface {
	Started(ctx context.Context, sources int) int
	Operational(ctx context.Context, rep report.RunReport) int
	Public(ctx context.Context, digest string) int
	ErrorAlert(ctx context.Context, message string) int
}

// Deps are the collaborators of a Pipeline. Metrics and Now are optional.
type Deps struct {
	Collector  Collector
	Gate       Gate
	Summarizer Summarizer
	Store      Store
	Reporter   Reporter
	Metrics    *metrics.Metrics
	Now        func() time.Time
}

// Pipeline runs one collection session end to end.
type Pipeline struct {
	Deps
}

func NewPipeline(d Deps) *Pipeline {
	if d.Metrics == nil {
		d.Metrics = metrics.Global
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Pipeline{Deps: d}
}

// RunResult summarises a finished run.
type RunResult struct {
	RunID     string
	Status    report.Status
	SessionID int64
	Saved     int
	Digest    string // intel.Kind name, empty when the stage did not run
	Sources   []news.SourceStats
	Errors    []string
	Duration  time.Duration
}

func (r RunResult) Succeeded() bool { return r.Status == report.StatusSuccess }

// run is the state of one Run, shared with the deferred cleanup.
type run struct {
	log    *slog.Logger
	rep    report.RunReport
	digest string
}

func (r *run) fail(status report.Status, msg string) {
	r.rep.Status = status
	r.rep.Errors = append(r.rep.Errors, msg)
}

// Run collects, deduplicates, summarises and persists, then reports. It
// never returns an error: every outcome, including an interrupt or a
// panic, ends in an operational report.
func (p *Pipeline) Run(ctx context.Context, jobs []collector.Job) (res RunResult) {
	id := uuid.NewString()
	r := &run{
		log: logger.With("component", "pipeline", "run_id", id),
		rep: report.RunReport{RunID: id, Status: report.StatusFailed, Start: p.Now()},
	}
	p.Metrics.RunStarted()

	defer func() {
		if v := recover(); v != nil {
			msg := fmt.Sprintf("Unexpected error: %v", v)
			r.log.Error("run panicked", "panic", v, "stack", string(debug.Stack()))
			r.fail(report.StatusFailed, msg)
			r.digest = ""
			p.alert(ctx, msg)
		}
		res = p.finish(ctx, r)
	}()

	p.execute(ctx, r, jobs)
	return res
}

func (p *Pipeline) execute(ctx context.Context, r *run, jobs []collector.Job) {
	p.Reporter.Started(ctx, len(jobs))

	r.log.Info("phase 1: collecting", "sources", len(jobs))
	collected := p.Collector.Run(ctx, jobs)
	r.rep.Sources = collected.Stats
	r.rep.Errors = append(r.rep.Errors, collected.Errors...)
	if interrupted(ctx, r) {
		return
	}

	fresh := p.Gate.Filter(ctx, collected.Articles, r.rep.Sources)
	totals := news.Totals(r.rep.Sources)
	p.Metrics.AddCollected(totals.TotalFound, totals.SkippedDuplicate, totals.Failed)
	r.log.Info("collection finished",
		"found", totals.TotalFound, "new", len(fresh),
		"duplicates", totals.SkippedDuplicate, "failed", totals.Failed)

	if len(fresh) == 0 {
		r.log.Warn("no new articles, nothing to save")
		r.fail(report.StatusNoNew, "No new articles found")
		return
	}

	r.log.Info("phase 2: intelligence", "articles", len(fresh))
	out := p.Summarizer.Process(ctx, fresh, r.rep.Sources)
	r.rep.DigestKind = out.Kind.String()
	if interrupted(ctx, r) {
		return
	}

	switch out.Kind {
	case intel.KindInsufficient:
		r.log.Warn("insufficient banking-relevant articles", "relevant", len(out.Relevant))
		r.fail(report.StatusInsufficient, "Insufficient banking-relevant articles")
		return
	case intel.KindFailed:
		msg := fmt.Sprintf("AI summary creation failed: %v", out.Err)
		r.log.Error("digest failed, nothing saved", "error", out.Err)
		r.fail(report.StatusFailed, msg)
		p.alert(ctx, "Scraping failed: "+msg)
		return
	case intel.KindFallback:
		p.Metrics.IncrementFallbackDigests()
		if out.Err != nil {
			r.rep.Errors = append(r.rep.Errors, fmt.Sprintf("Fallback digest used: %v", out.Err))
		}
	}
	if !out.Publishable() {
		r.fail(report.StatusFailed, "Digest is empty")
		return
	}

	r.log.Info("phase 3: saving session", "articles", len(fresh))
	sessionID, err := p.Store.SaveCompleteSession(ctx, fresh, storage.SessionSummary{
		Summary:         out.Text,
		ArticlesCount:   totals.TotalFound,
		SourcesCount:    len(r.rep.Sources),
		DurationSeconds: p.Now().Sub(r.rep.Start).Seconds(),
	})
	if err != nil {
		if interrupted(ctx, r) {
			return
		}
		msg := fmt.Sprintf("Database transaction failed - rolled back: %v", err)
		r.log.Error("session not saved", "error", err)
		r.fail(report.StatusFailed, msg)
		p.alert(ctx, "Scraping failed: "+msg)
		return
	}

	urls := make([]string, len(fresh))
	for i, a := range fresh {
		urls[i] = a.URL
	}
	p.Gate.Remember(ctx, urls...)
	p.Metrics.AddSaved(len(fresh))

	r.rep.Status = report.StatusSuccess
	r.rep.SessionID = sessionID
	r.rep.Saved = len(fresh)
	r.digest = out.Text
	r.log.Info("session saved", "session_id", sessionID, "articles", len(fresh), "digest", out.Kind)
}

func interrupted(ctx context.Context, r *run) bool {
	if ctx.Err() == nil {
		return false
	}
	r.log.Warn("run interrupted", "error", ctx.Err())
	r.fail(report.StatusInterrupted, "Scraping interrupted")
	return true
}

// finish sends the reports and records metrics. Sends use a context that
// survives cancellation of the run.
func (p *Pipeline) finish(ctx context.Context, r *run) RunResult {
	r.rep.End = p.Now()
	r.rep.LLMCalls = p.Summarizer.Calls()
	r.rep.QuotaExhausted = p.Summarizer.QuotaExhausted()
	p.Metrics.AddLLMCalls(r.rep.LLMCalls)

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
	defer cancel()

	sent := p.Reporter.Operational(sendCtx, r.rep)
	if r.rep.Status == report.StatusSuccess {
		sent += p.Reporter.Public(sendCtx, r.digest)
	}
	p.Metrics.AddTelegramMessagesSent(sent)

	duration := r.rep.Duration()
	success := r.rep.Status == report.StatusSuccess
	if r.rep.Status == report.StatusFailed {
		p.Metrics.SetError(lastError(r.rep.Errors))
	}
	p.Metrics.RunFinished(string(r.rep.Status), success, r.rep.SessionID, duration)

	r.log.Info("run finished", "status", r.rep.Status, "duration", duration.Round(time.Millisecond), "saved", r.rep.Saved)

	return RunResult{
		RunID:     r.rep.RunID,
		Status:    r.rep.Status,
		SessionID: r.rep.SessionID,
		Saved:     r.rep.Saved,
		Digest:    r.rep.DigestKind,
		Sources:   r.rep.Sources,
		Errors:    r.rep.Errors,
		Duration:  duration,
	}
}

func (p *Pipeline) alert(ctx context.Context, msg string) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
	defer cancel()
	p.Metrics.AddTelegramMessagesSent(p.Reporter.ErrorAlert(sendCtx, msg))
}

func lastError(errs []string) string {
	if len(errs) == 0 {
		return "run failed"
	}
	return errs[len(errs)-1]
}
