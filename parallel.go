package llmkit

import (
	"context"
	"sync"

	"github.com/llmkit-go/llmkit/llmkiterr"
	"github.com/llmkit-go/llmkit/provider"
)

// ParallelStrategy selects how a Parallel call combines results from
// several Clients.
type ParallelStrategy int

const (
	// FirstSuccess returns the first Client to succeed, cancelling the rest.
	FirstSuccess ParallelStrategy = iota
	// All waits for every Client and returns every result (error or not).
	All
	// Consensus returns the most common successful response text (exact
	// equality), ties going to the lowest-index Client, or an error if no
	// Client succeeds.
	Consensus
	// Race returns whichever Client responds first, success or failure,
	// cancelling the rest.
	Race
)

// Parallel fans a single request out across several Clients.
type Parallel struct {
	Clients  []*Client
	Strategy ParallelStrategy
}

func NewParallel(strategy ParallelStrategy, clients ...*Client) *Parallel {
	return &Parallel{Clients: clients, Strategy: strategy}
}

type parallelResult struct {
	index int
	resp  *provider.Response
	err   error
}

// Result is one Client's outcome from an All call, including failures.
type Result struct {
	ClientIndex int
	Response    *provider.Response
	Err         error
}

// Chat runs req against every Client concurrently and combines the results
// per p.Strategy. Losing calls (those whose result isn't used) have their
// context cancelled. The All strategy cannot be expressed as a single
// Response; call All directly instead of Chat for that strategy.
func (p *Parallel) Chat(ctx context.Context, req provider.Request) (*provider.Response, error) {
	switch p.Strategy {
	case FirstSuccess:
		return p.firstSuccess(ctx, req)
	case Race:
		return p.race(ctx, req)
	case Consensus:
		return p.consensus(ctx, req)
	case All:
		return nil, llmkiterr.NewInvalidRequest("strategy", "the All strategy gathers every result; call Parallel.All, not Chat")
	default:
		return nil, llmkiterr.NewInvalidRequest("strategy", "unknown parallel strategy")
	}
}

// All runs req against every Client concurrently and returns every result,
// success or failure, in client-declaration order.
func (p *Parallel) All(ctx context.Context, req provider.Request) []Result {
	all, cancel := p.runAll(ctx, req)
	defer cancel()

	results := make([]Result, len(all))
	for i, r := range all {
		results[i] = Result{ClientIndex: r.index, Response: r.resp, Err: r.err}
	}
	return results
}

func (p *Parallel) runAll(parent context.Context, req provider.Request) ([]parallelResult, func()) {
	ctx, cancel := context.WithCancel(parent)
	results := make(chan parallelResult, len(p.Clients))
	var wg sync.WaitGroup
	for i, c := range p.Clients {
		wg.Add(1)
		go func(i int, c *Client) {
			defer wg.Done()
			resp, err := c.Chat(ctx, req)
			results <- parallelResult{index: i, resp: resp, err: err}
		}(i, c)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	all := make([]parallelResult, len(p.Clients))
	for r := range results {
		all[r.index] = r
	}
	return all, cancel
}

func (p *Parallel) firstSuccess(parent context.Context, req provider.Request) (*provider.Response, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	results := make(chan parallelResult, len(p.Clients))
	for i, c := range p.Clients {
		go func(i int, c *Client) {
			resp, err := c.Chat(ctx, req)
			results <- parallelResult{index: i, resp: resp, err: err}
		}(i, c)
	}

	var lastErr error
	for range p.Clients {
		r := <-results
		if r.err == nil {
			return r.resp, nil
		}
		lastErr = r.err
	}
	if lastErr == nil {
		lastErr = llmkiterr.NewProvider("", 0, nil, "no clients configured")
	}
	return nil, lastErr
}

func (p *Parallel) race(parent context.Context, req provider.Request) (*provider.Response, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	results := make(chan parallelResult, len(p.Clients))
	for i, c := range p.Clients {
		go func(i int, c *Client) {
			resp, err := c.Chat(ctx, req)
			results <- parallelResult{index: i, resp: resp, err: err}
		}(i, c)
	}
	r := <-results
	return r.resp, r.err
}

// consensus groups successful responses by exact text equality and returns
// the most common one. Ties are broken by lowest provider index: all is in
// client-declaration order, so the first result to reach the winning count
// wins.
func (p *Parallel) consensus(parent context.Context, req provider.Request) (*provider.Response, error) {
	all, cancel := p.runAll(parent, req)
	defer cancel()

	counts := map[string]int{}
	firstSeen := map[string]*provider.Response{}
	for _, r := range all {
		if r.err != nil || r.resp == nil {
			continue
		}
		counts[r.resp.Text]++
		if _, ok := firstSeen[r.resp.Text]; !ok {
			firstSeen[r.resp.Text] = r.resp
		}
	}

	var best *provider.Response
	bestCount := 0
	for _, r := range all {
		if r.err != nil || r.resp == nil {
			continue
		}
		if n := counts[r.resp.Text]; n > bestCount {
			best, bestCount = firstSeen[r.resp.Text], n
		}
	}
	if best == nil {
		return nil, llmkiterr.NewProvider("", 0, nil, "no successful response among %d clients", len(p.Clients))
	}
	return best, nil
}
