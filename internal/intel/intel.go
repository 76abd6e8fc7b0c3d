// Package intel turns the run's new articles into a banking and finance
// digest: an LLM relevance filter, then digest synthesis, with a local
// fallback when the model is unavailable.
package intel

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/deusflow/aznews/internal/llm"
	"github.com/deusflow/aznews/internal/logger"
	"github.com/deusflow/aznews/internal/news"
)

// Kind tags what Process produced.
type Kind int

const (
	// KindDigest is a model-written digest.
	KindDigest Kind = iota
	// KindFallback is the locally assembled title list used when the model
	// is disabled, out of quota or answered empty.
	KindFallback
	// KindInsufficient means too little relevant content; the run stops.
	KindInsufficient
	// KindFailed means the model call failed in a way no fallback covers.
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindDigest:
		return "digest"
	case KindFallback:
		return "fallback"
	case KindInsufficient:
		return "insufficient"
	case KindFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of the intelligence stage.
type Outcome struct {
	Kind     Kind
	Text     string
	Relevant []news.Article
	Err      error
}

// Publishable reports whether the run may persist and publish Text.
func (o Outcome) Publishable() bool {
	return (o.Kind == KindDigest || o.Kind == KindFallback) && o.Text != ""
}

// Limiter gates every model call.
type Limiter interface {
	Wait(ctx context.Context) error
}

type Options struct {
	FilterBatch       int // articles per relevance request
	DigestMaxArticles int // articles included in the digest prompt
	FilterSnippet     int // content runes per article in the filter prompt
	DigestSnippet     int // content runes per article in the digest prompt

	// Fewer than MinRelevant survivors out of more than MinSubmitted
	// articles means the filter found nothing worth a digest. Both are
	// taken as given; MinRelevant 0 turns the check off. An empty filter
	// result is always insufficient.
	MinRelevant  int
	MinSubmitted int
}

func (o *Options) defaults() {
	if o.FilterBatch <= 0 {
		o.FilterBatch = 50
	}
	if o.DigestMaxArticles <= 0 {
		o.DigestMaxArticles = 50
	}
	if o.FilterSnippet <= 0 {
		o.FilterSnippet = 200
	}
	if o.DigestSnippet <= 0 {
		o.DigestSnippet = 300
	}
}

// Summarizer owns the model, its limiter and the run's quota flag.
type Summarizer struct {
	model   llm.Model
	limiter Limiter
	opts    Options
	log     *slog.Logger

	quota atomic.Bool
	calls atomic.Int64
}

// New builds a Summarizer. A nil model disables AI and every digest is
// the fallback.
func New(model llm.Model, limiter Limiter, opts Options) *Summarizer {
	opts.defaults()
	return &Summarizer{model: model, limiter: limiter, opts: opts, log: logger.Component("intel")}
}

func (s *Summarizer) Enabled() bool { return s.model != nil }

// QuotaExhausted reports whether a quota error was seen. The flag never
// clears for the lifetime of the Summarizer.
func (s *Summarizer) QuotaExhausted() bool { return s.quota.Load() }

// Calls is the number of model requests made.
func (s *Summarizer) Calls() int64 { return s.calls.Load() }

// Process filters articles and writes the digest.
func (s *Summarizer) Process(ctx context.Context, articles []news.Article, stats []news.SourceStats) Outcome {
	if len(articles) == 0 {
		return Outcome{Kind: KindInsufficient}
	}

	relevant := s.Filter(ctx, articles)
	s.log.Info("relevance filter done", "submitted", len(articles), "relevant", len(relevant))

	if len(relevant) == 0 ||
		(len(articles) > s.opts.MinSubmitted && len(relevant) < s.opts.MinRelevant) {
		s.log.Warn("insufficient relevant content",
			"submitted", len(articles), "relevant", len(relevant),
			"min_relevant", s.opts.MinRelevant, "min_submitted", s.opts.MinSubmitted)
		return Outcome{Kind: KindInsufficient, Relevant: relevant}
	}

	out := s.Digest(ctx, relevant, stats)
	out.Relevant = relevant
	return out
}

// Filter returns the articles the model considers in-domain, in input
// order. It fails open: errors and unparsable answers keep the batch.
func (s *Summarizer) Filter(ctx context.Context, articles []news.Article) []news.Article {
	if !s.Enabled() || s.QuotaExhausted() {
		return articles
	}

	var kept []news.Article
	for lo := 0; lo < len(articles); lo += s.opts.FilterBatch {
		hi := min(lo+s.opts.FilterBatch, len(articles))
		batch := articles[lo:hi]

		if s.QuotaExhausted() {
			kept = append(kept, batch...)
			continue
		}

		reply, err := s.generate(ctx, filterPrompt(batch, s.opts.FilterSnippet))
		if err != nil {
			s.log.Warn("relevance filter failed, keeping batch", "batch_start", lo, "size", len(batch), "error", err)
			kept = append(kept, batch...)
			continue
		}

		indices, ok := parseIndices(reply, len(batch))
		if !ok {
			s.log.Warn("unparsable filter reply, keeping batch", "reply", truncate(reply, 120))
			kept = append(kept, batch...)
			continue
		}
		for _, i := range indices {
			kept = append(kept, batch[i-1])
		}
	}
	return kept
}

// Digest writes the digest for relevant articles. Quota exhaustion, a
// disabled model and empty replies all produce the fallback digest. Nil
// stats are counted from relevant.
func (s *Summarizer) Digest(ctx context.Context, relevant []news.Article, stats []news.SourceStats) Outcome {
	if len(relevant) == 0 {
		return Outcome{Kind: KindInsufficient}
	}
	if stats == nil {
		stats = news.CountBySource(relevant)
	}
	if !s.Enabled() || s.QuotaExhausted() {
		s.log.Info("using fallback digest", "enabled", s.Enabled(), "quota_exhausted", s.QuotaExhausted())
		return Outcome{Kind: KindFallback, Text: FallbackDigest(relevant)}
	}

	reply, err := s.generate(ctx, digestPrompt(relevant, stats, s.opts.DigestMaxArticles, s.opts.DigestSnippet))
	switch {
	case err == nil:
	case s.QuotaExhausted(), errors.Is(err, llm.ErrEmptyResponse):
		s.log.Warn("digest unavailable, using fallback", "error", err)
		return Outcome{Kind: KindFallback, Text: FallbackDigest(relevant), Err: err}
	default:
		s.log.Error("digest generation failed", "error", err)
		return Outcome{Kind: KindFailed, Err: err}
	}

	if signalsInsufficient(reply) {
		s.log.Warn("model reported insufficient content", "reply", truncate(reply, 120))
		return Outcome{Kind: KindInsufficient}
	}

	text := Sanitize(reply)
	if text == "" {
		return Outcome{Kind: KindFallback, Text: FallbackDigest(relevant), Err: llm.ErrEmptyResponse}
	}
	return Outcome{Kind: KindDigest, Text: text}
}

// generate waits for the limiter, calls the model and trips the quota flag.
func (s *Summarizer) generate(ctx context.Context, prompt string) (string, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}
	s.calls.Add(1)

	reply, err := s.model.Generate(ctx, prompt)
	if err != nil {
		if llm.IsQuota(err) {
			if !s.quota.Swap(true) {
				s.log.Warn("LLM quota exhausted, AI disabled for this run", "model", s.model.Name(), "error", err)
			}
		}
		return "", err
	}
	return reply, nil
}
