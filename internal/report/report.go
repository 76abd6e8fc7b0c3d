// Package report formats and sends the run's Telegram messages: the
// operational report, the public digest, error alerts and start notices.
package report

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/deusflow/aznews/internal/logger"
	"github.com/deusflow/aznews/internal/news"
)

const (
	separator = "━━━━━━━━━━━━━━━━━━━━"
	maxErrors = 5
)

type Status string

const (
	StatusSuccess      Status = "success"
	StatusNoNew        Status = "no_new_articles"
	StatusInsufficient Status = "insufficient"
	StatusFailed       Status = "failed"
	StatusInterrupted  Status = "interrupted"
)

func (s Status) label() string {
	switch s {
	case StatusSuccess:
		return "✅ Success"
	case StatusNoNew:
		return "⚠️ No new articles"
	case StatusInsufficient:
		return "⚠️ Insufficient banking news"
	case StatusInterrupted:
		return "⛔️ Interrupted"
	default:
		return "❌ Failed"
	}
}

// RunReport is everything the operational channel sees about one run.
type RunReport struct {
	RunID          string
	Status         Status
	Start, End     time.Time
	Sources        []news.SourceStats
	Saved          int
	SessionID      int64
	DigestKind     string
	LLMCalls       int64
	QuotaExhausted bool
	Errors         []string
}

func (r RunReport) Duration() time.Duration {
	if r.End.Before(r.Start) {
		return 0
	}
	return r.End.Sub(r.Start)
}

// Health is the verdict line of the operational report.
func (r RunReport) Health() string {
	totals := news.Totals(r.Sources)
	switch {
	case r.Status == StatusFailed:
		return "🔴 Unhealthy"
	case len(r.Sources) > 0 && totals.TotalFound == 0:
		return "🔴 Unhealthy: no source returned listings"
	}

	silent := 0
	for _, s := range r.Sources {
		if s.TotalFound == 0 {
			silent++
		}
	}
	attempted := totals.ScrapedOK + totals.Failed
	switch {
	case silent > 0:
		return fmt.Sprintf("🟡 Degraded: %d source(s) returned nothing", silent)
	case attempted > 0 && totals.Failed*4 > attempted:
		return fmt.Sprintf("🟡 Degraded: %d of %d extractions failed", totals.Failed, attempted)
	default:
		return "🟢 Healthy"
	}
}

// Sender delivers a message to a list of chats and returns how many got it.
type Sender interface {
	Enabled() bool
	Send(ctx context.Context, text string, chatIDs []string) int
}

type Reporter struct {
	sender Sender
	ops    []string
	public []string
	now    func() time.Time
	log    *slog.Logger
}

// New returns a Reporter. With a nil or disabled sender every message is
// logged instead of sent.
func New(sender Sender, opsChatIDs, publicChatIDs []string) *Reporter {
	return &Reporter{
		sender: sender,
		ops:    opsChatIDs,
		public: publicChatIDs,
		now:    time.Now,
		log:    logger.Component("report"),
	}
}

func (r *Reporter) send(ctx context.Context, kind, text string, chatIDs []string) int {
	if r.sender == nil || !r.sender.Enabled() || len(chatIDs) == 0 {
		r.log.Info("telegram disabled, message not sent", "kind", kind, "text", text)
		return 0
	}
	n := r.sender.Send(ctx, text, chatIDs)
	if n == 0 {
		r.log.Error("message not delivered", "kind", kind, "chats", len(chatIDs))
	}
	return n
}

// Operational sends the run report to the operational channel. It is
// sent for every run, successful or not.
func (r *Reporter) Operational(ctx context.Context, rep RunReport) int {
	return r.send(ctx, "operational", FormatOperational(rep), r.ops)
}

// Public sends the digest to the public channel. Empty digests are not sent.
func (r *Reporter) Public(ctx context.Context, digest string) int {
	if strings.TrimSpace(digest) == "" {
		return 0
	}
	return r.send(ctx, "public", FormatPublic(digest, r.now()), r.public)
}

func (r *Reporter) ErrorAlert(ctx context.Context, message string) int {
	text := strings.Join([]string{
		"🚨 <b>Scraping Error Alert</b>",
		separator,
		"",
		"❌ " + html.EscapeString(message),
		"",
		separator,
		"🕒 " + timestamp(r.now()),
	}, "\n")
	return r.send(ctx, "alert", text, r.ops)
}

func (r *Reporter) Started(ctx context.Context, sources int) int {
	text := strings.Join([]string{
		"🚀 <b>Scraping Started</b>",
		separator,
		"",
		fmt.Sprintf("📚 Sources: %d", sources),
		"🕒 " + timestamp(r.now()),
		"",
		"⏳ Processing...",
	}, "\n")
	return r.send(ctx, "started", text, r.ops)
}

func FormatOperational(rep RunReport) string {
	totals := news.Totals(rep.Sources)
	lines := []string{
		"📰 <b>News Scraping Report</b>",
		separator,
		"",
		"<b>" + rep.Status.label() + "</b>",
		"🕐 Duration: " + FormatDuration(rep.Duration()),
		fmt.Sprintf("📊 Sources scraped: %d", len(rep.Sources)),
		fmt.Sprintf("📝 Total articles found: %d", totals.TotalFound),
		fmt.Sprintf("🆕 New articles: %d", totals.ScrapedOK),
		fmt.Sprintf("💾 Saved: %d", rep.Saved),
		fmt.Sprintf("⏭ Duplicates skipped: %d", totals.SkippedDuplicate),
		fmt.Sprintf("⚠️ Extraction failures: %d", totals.Failed),
	}
	if rep.SessionID > 0 {
		lines = append(lines, fmt.Sprintf("🗂 Session: #%d", rep.SessionID))
	}
	lines = append(lines, "")

	if len(rep.Sources) > 0 {
		lines = append(lines, "📚 <b>By Source</b>")
		for _, s := range rep.Sources {
			lines = append(lines, fmt.Sprintf("%s <b>%s</b>: %d new / %d total",
				sourceMarker(s.New()), html.EscapeString(s.Name), s.New(), s.TotalFound))
		}
		lines = append(lines, "")
	}

	if rep.DigestKind != "" || rep.LLMCalls > 0 {
		ai := fmt.Sprintf("🤖 Digest: %s, LLM calls: %d", rep.DigestKind, rep.LLMCalls)
		if rep.QuotaExhausted {
			ai += ", quota exhausted"
		}
		lines = append(lines, ai, "")
	}

	if len(rep.Errors) > 0 {
		lines = append(lines, "❌ <b>Errors</b>", fmt.Sprintf("⚠️ %d error(s) occurred", len(rep.Errors)))
		for _, e := range rep.Errors[:min(len(rep.Errors), maxErrors)] {
			lines = append(lines, "  • "+html.EscapeString(e))
		}
		if extra := len(rep.Errors) - maxErrors; extra > 0 {
			lines = append(lines, fmt.Sprintf("  • ... and %d more", extra))
		}
		lines = append(lines, "")
	}

	lines = append(lines,
		"🩺 "+rep.Health(),
		separator,
		"🕒 "+timestamp(rep.End),
	)
	if rep.RunID != "" {
		lines = append(lines, "🔖 "+rep.RunID)
	}
	return strings.Join(lines, "\n")
}

// FormatPublic wraps the digest with a dated header. Nothing else from the
// run reaches the public channel.
func FormatPublic(digest string, now time.Time) string {
	return fmt.Sprintf("🏦 <b>Bank və maliyyə xəbərləri</b>\n🗓 %s\n\n%s", now.In(news.Baku).Format("02.01.2006"), strings.TrimSpace(digest))
}

func sourceMarker(newArticles int) string {
	switch {
	case newArticles == 0:
		return "⚪️"
	case newArticles > 10:
		return "🟢"
	default:
		return "🟡"
	}
}

func FormatDuration(d time.Duration) string {
	s := d.Seconds()
	switch {
	case s < 60:
		return fmt.Sprintf("%.1fs", s)
	case s < 3600:
		return fmt.Sprintf("%.1fm", s/60)
	default:
		return fmt.Sprintf("%.1fh", s/3600)
	}
}

func timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05") + " UTC"
}
