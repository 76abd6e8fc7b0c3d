package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/aznews")
	for _, k := range []string{"AZNEWS_CONFIG", "GEMINI_API_KEY", "OPENAI_API_KEY", "TELEGRAM_BOT_TOKEN"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FetchConcurrency != 5 {
		t.Errorf("FetchConcurrency = %d, want 5", cfg.FetchConcurrency)
	}
	if cfg.FetchTimeout != 30*time.Second {
		t.Errorf("FetchTimeout = %v, want 30s", cfg.FetchTimeout)
	}
	if cfg.ScrapeBatchSize != 10 || cfg.ScrapeBatchPause != time.Second {
		t.Errorf("batching = %d/%v, want 10/1s", cfg.ScrapeBatchSize, cfg.ScrapeBatchPause)
	}
	if cfg.LLMRequestsPerMinute != 15 {
		t.Errorf("LLMRequestsPerMinute = %d, want 15", cfg.LLMRequestsPerMinute)
	}
	if cfg.InsufficientMinRelevant != 3 || cfg.InsufficientMinSubmitted != 5 {
		t.Errorf("insufficient threshold = %d of >%d, want 3 of >5", cfg.InsufficientMinRelevant, cfg.InsufficientMinSubmitted)
	}
	if cfg.LLMEnabled() {
		t.Error("LLM should be disabled without keys")
	}
	if cfg.TelegramEnabled() {
		t.Error("Telegram should be disabled without token")
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/aznews")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", " 100, 200 ,,")
	t.Setenv("CHANNEL_CHAT_ID", "@aznews")
	t.Setenv("FETCH_TIMEOUT", "12s")
	t.Setenv("INSUFFICIENT_MIN_RELEVANT", "4")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.OpsChatIDs) != 2 || cfg.OpsChatIDs[0] != "100" || cfg.OpsChatIDs[1] != "200" {
		t.Errorf("OpsChatIDs = %v", cfg.OpsChatIDs)
	}
	if len(cfg.PublicChatIDs) != 1 || cfg.PublicChatIDs[0] != "@aznews" {
		t.Errorf("PublicChatIDs = %v", cfg.PublicChatIDs)
	}
	if cfg.FetchTimeout != 12*time.Second {
		t.Errorf("FetchTimeout = %v", cfg.FetchTimeout)
	}
	if cfg.InsufficientMinRelevant != 4 {
		t.Errorf("InsufficientMinRelevant = %d", cfg.InsufficientMinRelevant)
	}
	if !cfg.LLMEnabled() || !cfg.TelegramEnabled() {
		t.Error("expected LLM and Telegram enabled")
	}
}

func TestLoadZeroThresholdDisablesCheck(t *testing.T) {
	t.Setenv("AZNEWS_CONFIG", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/aznews")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("INSUFFICIENT_MIN_RELEVANT", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.InsufficientMinRelevant != 0 {
		t.Errorf("InsufficientMinRelevant = %d, want 0 kept as given", cfg.InsufficientMinRelevant)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := writeTemp(t, "aznews.yaml", "database_url: postgres://file/db\nscrape_batch_size: 4\n")
	t.Setenv("AZNEWS_CONFIG", path)
	t.Setenv("SCRAPE_BATCH_SIZE", "6")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://file/db" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.ScrapeBatchSize != 6 {
		t.Errorf("environment should win over file, got %d", cfg.ScrapeBatchSize)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			DatabaseURL:          "postgres://x",
			FetchConcurrency:     5,
			FetchTimeout:         time.Second,
			ScrapeBatchSize:      10,
			LLMRequestsPerMinute: 15,
			LLMFilterBatch:       50,
			LLMDigestMaxArticles: 50,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing database", func(c *Config) { c.DatabaseURL = "" }, true},
		{"zero concurrency", func(c *Config) { c.FetchConcurrency = 0 }, true},
		{"zero batch", func(c *Config) { c.ScrapeBatchSize = 0 }, true},
		{"negative pause", func(c *Config) { c.ScrapeBatchPause = -time.Second }, true},
		{"token without chats", func(c *Config) { c.TelegramToken = "t" }, true},
		{"token with chats", func(c *Config) { c.TelegramToken = "t"; c.OpsChatIDs = []string{"1"} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadSources(t *testing.T) {
	t.Run("missing file uses defaults", func(t *testing.T) {
		got, err := LoadSources(filepath.Join(t.TempDir(), "none.yaml"))
		if err != nil {
			t.Fatalf("LoadSources: %v", err)
		}
		if len(got) != 10 {
			t.Errorf("got %d sources, want 10", len(got))
		}
	})

	t.Run("file", func(t *testing.T) {
		path := writeTemp(t, "sources.yaml", `
sources:
  - name: Banker.az
    enabled: true
    pages: 3
  - name: Oxu.az
    enabled: false
  - name: Trend.az
    enabled: true
`)
		got, err := LoadSources(path)
		if err != nil {
			t.Fatalf("LoadSources: %v", err)
		}
		if len(got) != 3 || got[0].Pages != 3 || got[2].Pages != 1 {
			t.Errorf("unexpected sources: %+v", got)
		}
		if en := Enabled(got); len(en) != 2 {
			t.Errorf("Enabled() = %+v", en)
		}
	})

	t.Run("duplicate", func(t *testing.T) {
		path := writeTemp(t, "sources.yaml", "sources:\n  - name: APA.az\n  - name: apa.az\n")
		if _, err := LoadSources(path); err == nil {
			t.Error("expected duplicate error")
		}
	})
}
