package report

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/deusflow/aznews/internal/news"
)

type fakeSender struct {
	mu      sync.Mutex
	enabled bool
	sent    []sent
}

type sent struct {
	text  string
	chats []string
}

func (f *fakeSender) Enabled() bool { return f.enabled }

func (f *fakeSender) Send(_ context.Context, text string, chatIDs []string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{text: text, chats: chatIDs})
	return len(chatIDs)
}

func newTestReporter(enabled bool) (*Reporter, *fakeSender) {
	s := &fakeSender{enabled: enabled}
	r := New(s, []string{"ops"}, []string{"channel"})
	r.now = func() time.Time { return time.Date(2025, 11, 16, 6, 30, 0, 0, time.UTC) }
	return r, s
}

func sampleReport() RunReport {
	start := time.Date(2025, 11, 16, 6, 0, 0, 0, time.UTC)
	return RunReport{
		RunID:  "run-1",
		Status: StatusSuccess,
		Start:  start,
		End:    start.Add(95 * time.Second),
		Sources: []news.SourceStats{
			{Name: "Banker.az", TotalFound: 20, ScrapedOK: 12, SkippedDuplicate: 8},
			{Name: "Marja.az", TotalFound: 15, ScrapedOK: 3, SkippedDuplicate: 11, Failed: 1},
			{Name: "Report.az", TotalFound: 4, SkippedDuplicate: 4},
		},
		Saved:      15,
		SessionID:  42,
		DigestKind: "digest",
		LLMCalls:   2,
	}
}

func TestFormatOperational(t *testing.T) {
	text := FormatOperational(sampleReport())

	for _, want := range []string{
		"📰 <b>News Scraping Report</b>",
		"✅ Success",
		"🕐 Duration: 1.6m",
		"📊 Sources scraped: 3",
		"📝 Total articles found: 39",
		"💾 Saved: 15",
		"⏭ Duplicates skipped: 23",
		"🗂 Session: #42",
		"🟢 <b>Banker.az</b>: 12 new / 20 total",
		"🟡 <b>Marja.az</b>: 3 new / 15 total",
		"⚪️ <b>Report.az</b>: 0 new / 4 total",
		"🤖 Digest: digest, LLM calls: 2",
		"🩺 🟢 Healthy",
		"🕒 2025-11-16 06:01:35 UTC",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q\n%s", want, text)
		}
	}
	if strings.Contains(text, "Errors") {
		t.Error("report without errors should not have an errors block")
	}
}

func TestFormatOperationalCapsErrors(t *testing.T) {
	rep := sampleReport()
	rep.Status = StatusFailed
	for i := 0; i < 8; i++ {
		rep.Errors = append(rep.Errors, fmt.Sprintf("Oxu.az: <timeout %d>", i))
	}
	text := FormatOperational(rep)

	if got := strings.Count(text, "  • Oxu.az"); got != maxErrors {
		t.Errorf("expected %d error lines, got %d", maxErrors, got)
	}
	if !strings.Contains(text, "... and 3 more") {
		t.Error("missing overflow line")
	}
	if !strings.Contains(text, "&lt;timeout 0&gt;") {
		t.Error("error text must be escaped")
	}
	if !strings.Contains(text, "❌ Failed") || !strings.Contains(text, "🔴 Unhealthy") {
		t.Errorf("failed run should be reported as such:\n%s", text)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name    string
		status  Status
		sources []news.SourceStats
		want    string
	}{
		{"healthy", StatusSuccess, []news.SourceStats{{Name: "a", TotalFound: 5, ScrapedOK: 5}}, "🟢"},
		{"silent source", StatusNoNew, []news.SourceStats{{Name: "a", TotalFound: 5}, {Name: "b"}}, "🟡"},
		{"many failures", StatusSuccess, []news.SourceStats{{Name: "a", TotalFound: 10, ScrapedOK: 6, Failed: 4}}, "🟡"},
		{"nothing listed", StatusNoNew, []news.SourceStats{{Name: "a"}, {Name: "b"}}, "🔴"},
		{"failed", StatusFailed, []news.SourceStats{{Name: "a", TotalFound: 5, ScrapedOK: 5}}, "🔴"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RunReport{Status: tt.status, Sources: tt.sources}.Health()
			if !strings.HasPrefix(got, tt.want) {
				t.Errorf("Health() = %q, want prefix %q", got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{12300 * time.Millisecond, "12.3s"},
		{90 * time.Second, "1.5m"},
		{2 * time.Hour, "2.0h"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestChannelsAreSeparate(t *testing.T) {
	r, s := newTestReporter(true)
	ctx := context.Background()

	r.Operational(ctx, sampleReport())
	r.Public(ctx, "<b>Bank sektoru</b>\n• Mərkəzi Bank qərar verdi")
	r.ErrorAlert(ctx, "database <down>")

	if len(s.sent) != 3 {
		t.Fatalf("expected 3 sends, got %d", len(s.sent))
	}
	if s.sent[0].chats[0] != "ops" || s.sent[1].chats[0] != "channel" || s.sent[2].chats[0] != "ops" {
		t.Errorf("messages went to the wrong chats: %+v", s.sent)
	}

	public := s.sent[1].text
	if !strings.HasPrefix(public, "🏦 <b>Bank və maliyyə xəbərləri</b>\n🗓 16.11.2025") {
		t.Errorf("unexpected public header: %q", public)
	}
	for _, leak := range []string{"Duration", "Sources scraped", "Errors", "Healthy"} {
		if strings.Contains(public, leak) {
			t.Errorf("public message leaks %q", leak)
		}
	}
	if !strings.Contains(s.sent[2].text, "database &lt;down&gt;") {
		t.Errorf("alert not escaped: %q", s.sent[2].text)
	}
}

func TestFormatPublicDatesInBaku(t *testing.T) {
	// 21:30 UTC is already the next day in Baku.
	now := time.Date(2025, 11, 16, 21, 30, 0, 0, time.UTC)
	got := FormatPublic("x", now)
	if !strings.Contains(got, "🗓 17.11.2025") {
		t.Errorf("digest dated in the wrong zone: %q", got)
	}
}

func TestPublicSkipsEmptyDigest(t *testing.T) {
	r, s := newTestReporter(true)
	if n := r.Public(context.Background(), "  \n"); n != 0 {
		t.Errorf("expected nothing sent, got %d", n)
	}
	if len(s.sent) != 0 {
		t.Errorf("unexpected sends: %+v", s.sent)
	}
}

func TestDisabledSenderLogsOnly(t *testing.T) {
	r, s := newTestReporter(false)
	ctx := context.Background()
	if n := r.Operational(ctx, sampleReport()) + r.Started(ctx, 10); n != 0 {
		t.Errorf("expected 0 deliveries, got %d", n)
	}
	if len(s.sent) != 0 {
		t.Error("disabled sender must not be called")
	}

	nilSender := New(nil, []string{"ops"}, nil)
	if n := nilSender.ErrorAlert(ctx, "boom"); n != 0 {
		t.Errorf("expected 0 with nil sender, got %d", n)
	}
}
