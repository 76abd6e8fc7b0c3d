package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/deusflow/aznews/internal/retry"
)

func TestSplitShortTextUnchanged(t *testing.T) {
	parts := Split("qısa mesaj", MaxMessageLength)
	if len(parts) != 1 || parts[0] != "qısa mesaj" {
		t.Errorf("unexpected parts: %q", parts)
	}
	if got := Label(parts); got[0] != "qısa mesaj" {
		t.Errorf("single part must not be labelled: %q", got[0])
	}
}

func TestSplitRoundTrip(t *testing.T) {
	var b strings.Builder
	for i := 0; b.Len() < 10000; i++ {
		fmt.Fprintf(&b, "• <b>Xəbər %d</b>: Mərkəzi Bank faiz dərəcəsini açıqladı\n", i)
	}
	text := b.String()

	parts := Split(text, MaxMessageLength)
	if len(parts) < 2 {
		t.Fatalf("expected at least 2 parts, got %d", len(parts))
	}
	if got := strings.Join(parts, ""); got != text {
		t.Fatal("parts do not reconstruct the original text")
	}
	for i, p := range Label(parts) {
		if n := units(p); n > MaxMessageLength {
			t.Errorf("part %d is %d units", i+1, n)
		}
		prefix := fmt.Sprintf("(%d/%d)\n", i+1, len(parts))
		if !strings.HasPrefix(p, prefix) {
			t.Errorf("part %d missing indicator: %q", i+1, p[:20])
		}
		if i < len(parts)-1 && !strings.HasSuffix(parts[i], "\n") {
			t.Errorf("part %d does not end on a line boundary", i+1)
		}
	}
}

func TestSplitLongLine(t *testing.T) {
	words := strings.Repeat("bank ", 50)
	parts := Split(words, 40)
	if strings.Join(parts, "") != words {
		t.Fatal("round trip failed")
	}
	for i, p := range parts[:len(parts)-1] {
		if !strings.HasSuffix(p, " ") {
			t.Errorf("part %d cut inside a word: %q", i+1, p)
		}
		if units(p) > 40-labelReserve {
			t.Errorf("part %d too long: %d", i+1, units(p))
		}
	}

	solid := strings.Repeat("ə", 100)
	parts = Split(solid, 40)
	if strings.Join(parts, "") != solid {
		t.Fatal("hard cut lost text")
	}
	if len(parts) != 5 {
		t.Errorf("expected 5 parts of 24 runes, got %d", len(parts))
	}
}

func TestUnitsCountsSurrogatePairs(t *testing.T) {
	if got := units("a📰"); got != 3 {
		t.Errorf("expected 3 units, got %d", got)
	}
}

type recorded struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
	Mode   string `json:"parse_mode"`
}

func testClient(t *testing.T, handler func(w http.ResponseWriter, msg recorded, call int)) (*Client, func() []recorded) {
	t.Helper()
	var mu sync.Mutex
	var got []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var msg recorded
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Errorf("decode: %v", err)
		}
		mu.Lock()
		got = append(got, msg)
		call := len(got)
		mu.Unlock()
		handler(w, msg, call)
	}))
	t.Cleanup(srv.Close)

	c := New("TOKEN", Options{
		BaseURL: srv.URL,
		Retry:   retry.RetryConfig{MaxAttempts: 3, Delay: time.Millisecond},
	})
	return c, func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded(nil), got...)
	}
}

func ok(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"ok":true,"result":{}}`)
}

func TestSendToAllChats(t *testing.T) {
	c, calls := testClient(t, func(w http.ResponseWriter, _ recorded, _ int) { ok(w) })

	n := c.Send(context.Background(), "<b>salam</b>", []string{"1", "2"})
	if n != 2 {
		t.Errorf("expected 2 deliveries, got %d", n)
	}
	got := calls()
	if len(got) != 2 || got[0].ChatID != "1" || got[1].ChatID != "2" {
		t.Fatalf("unexpected calls: %+v", got)
	}
	if got[0].Mode != "HTML" {
		t.Errorf("expected HTML parse mode, got %q", got[0].Mode)
	}
}

func TestSendRetriesAfterRateLimit(t *testing.T) {
	c, calls := testClient(t, func(w http.ResponseWriter, _ recorded, call int) {
		if call == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":0}}`)
			return
		}
		ok(w)
	})

	if n := c.Send(context.Background(), "salam", []string{"1"}); n != 1 {
		t.Errorf("expected delivery after retry, got %d", n)
	}
	if got := len(calls()); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
}

func TestSendDoesNotRetryBadRequest(t *testing.T) {
	c, calls := testClient(t, func(w http.ResponseWriter, msg recorded, _ int) {
		if msg.ChatID == "bad" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)
			return
		}
		ok(w)
	})

	if n := c.Send(context.Background(), "salam", []string{"bad", "good"}); n != 1 {
		t.Errorf("expected one delivery, got %d", n)
	}
	if got := len(calls()); got != 2 {
		t.Errorf("expected one attempt per chat, got %d", got)
	}
}

func TestSendSplitsLongText(t *testing.T) {
	c, calls := testClient(t, func(w http.ResponseWriter, _ recorded, _ int) { ok(w) })

	text := strings.Repeat("Bank sektoru üzrə yeni qərar açıqlandı.\n", 250)
	if n := c.Send(context.Background(), text, []string{"1"}); n != 1 {
		t.Fatalf("expected delivery, got %d", n)
	}

	got := calls()
	if len(got) < 2 {
		t.Fatalf("expected several messages, got %d", len(got))
	}
	var rebuilt strings.Builder
	for i, msg := range got {
		prefix := fmt.Sprintf("(%d/%d)\n", i+1, len(got))
		if !strings.HasPrefix(msg.Text, prefix) {
			t.Fatalf("message %d missing %q", i+1, prefix)
		}
		rebuilt.WriteString(strings.TrimPrefix(msg.Text, prefix))
	}
	if rebuilt.String() != text {
		t.Error("sent parts do not reconstruct the text")
	}
}

func TestDisabledClientSendsNothing(t *testing.T) {
	c := New("", Options{})
	if c.Enabled() {
		t.Fatal("client without token must be disabled")
	}
	if n := c.Send(context.Background(), "salam", []string{"1"}); n != 0 {
		t.Errorf("expected 0, got %d", n)
	}
}
