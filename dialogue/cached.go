package dialogue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tbxark/formpilot/form"
)

const (
	defaultCacheSize   = 128
	defaultFillTimeout = 30 * time.Second
)

// CachedGenerator answers from a per-form cache. On a miss it returns the
// fallback wording at once and asks the remote generator in the background,
// so later sessions of the same form get the generated questions.
type CachedGenerator struct {
	remote      Generator
	fallback    Generator
	cache       *lru.Cache[string, []Question]
	fillTimeout time.Duration

	mu       sync.Mutex
	inflight map[string]bool
	wg       sync.WaitGroup
}

type CacheOption func(*CachedGenerator)

func WithFallback(g Generator) CacheOption {
	return func(c *CachedGenerator) {
		if g != nil {
			c.fallback = g
		}
	}
}

func WithFillTimeout(d time.Duration) CacheOption {
	return func(c *CachedGenerator) {
		if d > 0 {
			c.fillTimeout = d
		}
	}
}

func NewCachedGenerator(remote Generator, size int, opts ...CacheOption) (*CachedGenerator, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, []Question](size)
	if err != nil {
		return nil, err
	}
	c := &CachedGenerator{
		remote:      remote,
		fallback:    LocalGenerator{},
		cache:       cache,
		fillTimeout: defaultFillTimeout,
		inflight:    map[string]bool{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *CachedGenerator) Questions(ctx context.Context, f *form.Form) ([]Question, error) {
	if questions, ok := c.cache.Get(f.ID); ok && len(questions) == len(f.Fields) {
		return questions, nil
	}
	c.fill(ctx, f)
	return c.fallback.Questions(ctx, f)
}

// Wait blocks until background fills have finished.
func (c *CachedGenerator) Wait() {
	c.wg.Wait()
}

func (c *CachedGenerator) fill(ctx context.Context, f *form.Form) {
	if c.remote == nil {
		return
	}
	c.mu.Lock()
	if c.inflight[f.ID] {
		c.mu.Unlock()
		return
	}
	c.inflight[f.ID] = true
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			c.mu.Lock()
			delete(c.inflight, f.ID)
			c.mu.Unlock()
		}()

		fillCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fillTimeout)
		defer cancel()
		questions, err := c.remote.Questions(fillCtx, f)
		if err != nil {
			slog.Warn("Question generation failed, keeping fallback wording", "form_id", f.ID, "error", err)
			return
		}
		c.cache.Add(f.ID, questions)
		slog.Info("Cached generated questions", "form_id", f.ID, "count", len(questions))
	}()
}
