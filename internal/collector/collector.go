// Package collector drives the site adapters: it fans out listing pages,
// drops known URLs and scrapes the rest in paced batches.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deusflow/aznews/internal/logger"
	"github.com/deusflow/aznews/internal/news"
	"github.com/deusflow/aznews/internal/sources"
)

const (
	DefaultBatchSize  = 10
	DefaultBatchPause = time.Second
)

// Gate is the deduplication check applied before scraping.
type Gate interface {
	IsNew(ctx context.Context, url string) bool
}

type Options struct {
	BatchSize  int
	BatchPause time.Duration
}

// Job is one adapter and the number of listing pages to read per category.
type Job struct {
	Adapter sources.Adapter
	Pages   int
}

// Result is what one collection produced. Stats is in job order.
type Result struct {
	Articles []news.Article
	Stats    []news.SourceStats
	Errors   []string
}

type Collector struct {
	gate  Gate
	opts  Options
	log   *slog.Logger
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a collector. A nil gate treats every URL as new.
func New(gate Gate, opts Options) *Collector {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.BatchPause < 0 {
		opts.BatchPause = 0
	}
	return &Collector{gate: gate, opts: opts, log: logger.Component("collector"), sleep: pause}
}

type task struct {
	job int
	url string
}

type outcome struct {
	article *news.Article
	err     error
}

// Run collects from every job. It never fails; adapter problems end up
// in the per-source counters and Errors. A cancelled ctx stops new
// batches and returns what was scraped so far.
func (c *Collector) Run(ctx context.Context, jobs []Job) Result {
	res := Result{Stats: make([]news.SourceStats, len(jobs))}
	for i, j := range jobs {
		res.Stats[i].Name = j.Adapter.Name()
	}

	start := time.Now()
	listed := c.list(ctx, jobs)

	var tasks []task
	for i, urls := range listed {
		res.Stats[i].TotalFound = len(urls)
		for _, u := range urls {
			if c.gate != nil && !c.gate.IsNew(ctx, u) {
				res.Stats[i].SkippedDuplicate++
				continue
			}
			tasks = append(tasks, task{job: i, url: u})
		}
		c.log.Info("listing done",
			"source", res.Stats[i].Name,
			"found", res.Stats[i].TotalFound,
			"known", res.Stats[i].SkippedDuplicate)
	}

	outcomes := c.scrape(ctx, jobs, tasks)

	for k, t := range tasks {
		o := outcomes[k]
		st := &res.Stats[t.job]
		switch {
		case o.article != nil:
			st.ScrapedOK++
			res.Articles = append(res.Articles, *o.article)
		case o.err != nil:
			st.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", st.Name, o.err))
		}
	}

	total := news.Totals(res.Stats)
	c.log.Info("collection finished",
		"found", total.TotalFound,
		"attempted", len(tasks),
		"scraped", total.ScrapedOK,
		"failed", total.Failed,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return res
}

// list reads every (job, category, page) listing concurrently and
// recombines the URLs per job in category then page order.
func (c *Collector) list(ctx context.Context, jobs []Job) [][]string {
	pages := make([][][]string, len(jobs))

	var g errgroup.Group
	for i, j := range jobs {
		categories := j.Adapter.Categories()
		if len(categories) == 0 {
			categories = []string{""}
		}
		n := max(j.Pages, 1)
		pages[i] = make([][]string, len(categories)*n)

		for ci, cat := range categories {
			for p := 1; p <= n; p++ {
				slot := ci*n + p - 1
				adapter := j.Adapter
				g.Go(func() error {
					pages[i][slot] = c.listPage(ctx, adapter, p, cat)
					return nil
				})
			}
		}
	}
	_ = g.Wait()

	out := make([][]string, len(jobs))
	for i := range jobs {
		seen := make(map[string]bool)
		out[i] = []string{}
		for _, urls := range pages[i] {
			for _, u := range urls {
				if u == "" || seen[u] {
					continue
				}
				seen[u] = true
				out[i] = append(out[i], u)
			}
		}
	}
	return out
}

func (c *Collector) listPage(ctx context.Context, a sources.Adapter, page int, category string) (urls []string) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("listing panicked", "source", a.Name(), "page", page, "category", category, "panic", r)
			urls = nil
		}
	}()
	if ctx.Err() != nil {
		return nil
	}
	urls = a.ListArticleURLs(ctx, page, category)
	c.log.Debug("listing page", "source", a.Name(), "page", page, "category", category, "urls", len(urls))
	return urls
}

// scrape runs tasks in sequential batches, concurrently within a batch.
func (c *Collector) scrape(ctx context.Context, jobs []Job, tasks []task) []outcome {
	outcomes := make([]outcome, len(tasks))
	size := c.opts.BatchSize
	batches := (len(tasks) + size - 1) / size

	for b := 0; b < batches; b++ {
		if b > 0 && c.opts.BatchPause > 0 {
			if err := c.sleep(ctx, c.opts.BatchPause); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			c.log.Warn("collection interrupted", "batch", b+1, "batches", batches)
			break
		}

		lo, hi := b*size, min((b+1)*size, len(tasks))
		c.log.Debug("scraping batch", "batch", b+1, "batches", batches, "size", hi-lo)

		var wg sync.WaitGroup
		for k := lo; k < hi; k++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				outcomes[k] = c.scrapeOne(ctx, jobs[tasks[k].job].Adapter, tasks[k].url)
			}()
		}
		wg.Wait()
	}
	return outcomes
}

func (c *Collector) scrapeOne(ctx context.Context, a sources.Adapter, url string) (o outcome) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("scrape panicked", "source", a.Name(), "url", url, "panic", r)
			o = outcome{err: fmt.Errorf("panic scraping %s: %v", url, r)}
		}
	}()

	article, err := a.ScrapeArticle(ctx, url)
	if err != nil {
		c.log.Debug("scrape failed", "source", a.Name(), "url", url, "error", err)
		return outcome{err: err}
	}
	if article == nil {
		return outcome{err: fmt.Errorf("no article extracted: %s", url)}
	}
	return outcome{article: article}
}

func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
