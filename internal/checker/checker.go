// Package checker runs index checks against the API in sequential chunks,
// reporting partial results and progress as each chunk completes.
package checker

import (
	"context"
	"strings"
	"time"

	"github.com/jonesrussell/index-checker/internal/apiclient"
	"github.com/jonesrussell/index-checker/internal/models"
)

// Remote checks one chunk of URLs.
type Remote interface {
	CheckIndex(ctx context.Context, urls []string) ([]models.CheckedURL, error)
}

// RemoteFunc adapts a function to Remote.
type RemoteFunc func(ctx context.Context, urls []string) ([]models.CheckedURL, error)

func (f RemoteFunc) CheckIndex(ctx context.Context, urls []string) ([]models.CheckedURL, error) {
	return f(ctx, urls)
}

// FromAPI returns a Remote backed by the REST client. Responses of either
// shape are normalized to a flat list.
func FromAPI(c *apiclient.Client) Remote {
	return RemoteFunc(func(ctx context.Context, urls []string) ([]models.CheckedURL, error) {
		resp, err := c.CheckIndex(ctx, urls)
		if err != nil {
			return nil, err
		}
		return resp.Normalize(), nil
	})
}

// Summary is passed to OnComplete.
type Summary struct {
	Total       int
	Processed   int
	Chunks      int
	ChunkErrors int
	Results     []models.CheckedURL
	Cancelled   bool
	Duration    time.Duration
}

// Observer receives loop events. All calls happen on the goroutine running Run.
type Observer interface {
	OnPartial(results []models.CheckedURL)
	OnProgress(done, total int)
	OnChunkError(chunk []string, err error)
	OnComplete(summary Summary)
}

// Callbacks is an Observer built from optional functions.
type Callbacks struct {
	Partial    func(results []models.CheckedURL)
	Progress   func(done, total int)
	ChunkError func(chunk []string, err error)
	Complete   func(summary Summary)
}

func (c Callbacks) OnPartial(results []models.CheckedURL) {
	if c.Partial != nil {
		c.Partial(results)
	}
}

func (c Callbacks) OnProgress(done, total int) {
	if c.Progress != nil {
		c.Progress(done, total)
	}
}

func (c Callbacks) OnChunkError(chunk []string, err error) {
	if c.ChunkError != nil {
		c.ChunkError(chunk, err)
	}
}

func (c Callbacks) OnComplete(summary Summary) {
	if c.Complete != nil {
		c.Complete(summary)
	}
}

// Sleeper pauses between chunks. It returns early with ctx.Err() on cancellation.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Loop is the batched checker.
type Loop struct {
	policy Policy
	sleep  Sleeper
}

// Option configures a Loop.
type Option func(*Loop)

// WithSleeper replaces the inter-chunk pause.
func WithSleeper(s Sleeper) Option {
	return func(l *Loop) { l.sleep = s }
}

// New returns a loop using the normalized policy.
func New(policy Policy, opts ...Option) *Loop {
	l := &Loop{policy: policy.Normalize(), sleep: sleep}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Policy returns the effective policy.
func (l *Loop) Policy() Policy {
	return l.policy
}

// Run checks rawURLs chunk by chunk. A failed chunk is reported and skipped.
// Cancellation stops before the next chunk. OnComplete fires exactly once.
func (l *Loop) Run(ctx context.Context, remote Remote, rawURLs []string, obs Observer) Summary {
	if obs == nil {
		obs = Callbacks{}
	}
	start := time.Now()

	urls := Dedupe(rawURLs)
	chunks := Chunk(urls, l.policy.BatchSize)

	summary := Summary{Total: len(urls), Results: make([]models.CheckedURL, 0, len(urls))}
	for i, chunk := range chunks {
		if ctx.Err() != nil {
			summary.Cancelled = true
			break
		}

		results, err := remote.CheckIndex(ctx, chunk)
		summary.Chunks++
		summary.Processed += len(chunk)

		if err != nil {
			summary.ChunkErrors++
			obs.OnChunkError(chunk, err)
		} else {
			summary.Results = append(summary.Results, results...)
			obs.OnPartial(results)
		}
		obs.OnProgress(summary.Processed, summary.Total)

		if i < len(chunks)-1 {
			if err := l.sleep(ctx, l.policy.Delay); err != nil {
				summary.Cancelled = true
				break
			}
		}
	}

	summary.Duration = time.Since(start)
	obs.OnComplete(summary)
	return summary
}

// Dedupe trims every entry, drops empties and keeps the first occurrence of each URL.
func Dedupe(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		u := strings.TrimSpace(r)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// Chunk splits urls into consecutive slices of at most size elements.
func Chunk(urls []string, size int) [][]string {
	if size <= 0 || len(urls) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(urls)+size-1)/size)
	for start := 0; start < len(urls); start += size {
		end := min(start+size, len(urls))
		chunks = append(chunks, urls[start:end])
	}
	return chunks
}
