// Package session drives interactive search-as-you-type: input is debounced,
// each search is tagged with a generation, and results from a superseded
// generation are dropped instead of overwriting newer state.
package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/content"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/fusion"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/metrics"
)

// DefaultDebounce is how long input must be quiet before a search starts.
const DefaultDebounce = 300 * time.Millisecond

type State int

const (
	Idle State = iota
	Debouncing
	Searching
	Results
	NoResults
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Debouncing:
		return "debouncing"
	case Searching:
		return "searching"
	case Results:
		return "results"
	case NoResults:
		return "no_results"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Searcher runs one search for a session.
type Searcher interface {
	Search(ctx context.Context, query string) (*executor.SearchResult, error)
}

// SearcherFunc adapts a plain function to Searcher.
type SearcherFunc func(ctx context.Context, query string) (*executor.SearchResult, error)

func (f SearcherFunc) Search(ctx context.Context, query string) (*executor.SearchResult, error) {
	return f(ctx, query)
}

// ExecutorSearcher runs session searches through exec with fixed options.
func ExecutorSearcher(exec *executor.Executor, opts fusion.Options) Searcher {
	return SearcherFunc(func(ctx context.Context, query string) (*executor.SearchResult, error) {
		return exec.Execute(ctx, parser.Parse(query), opts)
	})
}

// Snapshot is a copy of session state handed to listeners.
type Snapshot struct {
	State      State
	Query      string
	Result     *executor.SearchResult
	Err        error
	Selected   string
	Generation uint64

	seq uint64
}

// Listener receives state changes one at a time, oldest first. A snapshot
// older than one already delivered is dropped. Listeners are called outside
// the session lock and may call back into the session.
type Listener func(Snapshot)

type Option func(*Session)

func WithDebounce(d time.Duration) Option {
	return func(s *Session) { s.debounce = d }
}

func WithListener(l Listener) Option {
	return func(s *Session) { s.listener = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

type Session struct {
	searcher Searcher
	debounce time.Duration
	listener Listener
	metrics  *metrics.Metrics
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      State
	query      string
	result     *executor.SearchResult
	err        error
	selected   string
	generation uint64
	timer      *time.Timer
	closed     bool
	seq        uint64

	deliverMu  sync.Mutex
	pending    []Snapshot
	delivering bool
	delivered  uint64
}

// New returns an idle session. Searches run under ctx until Close.
func New(ctx context.Context, searcher Searcher, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		searcher: searcher,
		debounce: DefaultDebounce,
		logger:   slog.Default().With("component", "search-session"),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Input records new query text. Blank text returns the session to Idle
// without searching; anything else (re)starts the debounce timer.
func (s *Session) Input(text string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.supersedeLocked()
	if strings.TrimSpace(text) == "" {
		s.resetLocked()
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)
		return
	}

	s.state = Debouncing
	s.query = text
	s.result = nil
	s.err = nil
	s.selected = ""
	gen := s.generation
	s.timer = time.AfterFunc(s.debounce, func() { s.run(gen, text) })
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// Select picks a result from the current result set and returns the session
// to Idle. ok is false when id is not among the current results.
func (s *Session) Select(id string) (doc content.Document, ok bool) {
	s.mu.Lock()
	if s.result != nil {
		for _, r := range s.result.Results {
			if r.Document.ID == id {
				doc, ok = r.Document, true
				break
			}
		}
	}
	s.supersedeLocked()
	s.resetLocked()
	s.selected = id
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return doc, ok
}

// Clear drops the query and any pending or displayed results.
func (s *Session) Clear() {
	s.mu.Lock()
	s.supersedeLocked()
	s.resetLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// Close stops the session. Pending timers are stopped and in-flight searches
// are cancelled.
func (s *Session) Close() {
	s.mu.Lock()
	s.supersedeLocked()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) run(gen uint64, query string) {
	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.state = Searching
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	res, err := s.searcher.Search(s.ctx, query)

	s.mu.Lock()
	if s.closed || gen != s.generation {
		current := s.generation
		s.mu.Unlock()
		s.logger.Debug("discarding stale search result",
			"query", query,
			"generation", gen,
			"current_generation", current,
		)
		if s.metrics != nil {
			s.metrics.SessionStaleDiscarded.Inc()
		}
		return
	}
	switch {
	case err != nil:
		s.state = Error
		s.err = err
		s.logger.Warn("search failed", "query", query, "error", err)
	case res == nil || len(res.Results) == 0:
		s.state = NoResults
		s.result = res
	default:
		s.state = Results
		s.result = res
	}
	snap = s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// supersedeLocked invalidates any pending or in-flight search.
func (s *Session) supersedeLocked() {
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) resetLocked() {
	s.state = Idle
	s.query = ""
	s.result = nil
	s.err = nil
	s.selected = ""
}

func (s *Session) snapshotLocked() Snapshot {
	s.seq++
	return Snapshot{
		State:      s.state,
		Query:      s.query,
		Result:     s.result,
		Err:        s.err,
		Selected:   s.selected,
		Generation: s.generation,
		seq:        s.seq,
	}
}

// notify queues snap for the listener. Whichever caller finds no delivery
// in progress drains the queue; the others return once their snapshot is
// queued, including re-entrant calls made from the listener itself.
func (s *Session) notify(snap Snapshot) {
	if s.listener == nil {
		return
	}
	s.deliverMu.Lock()
	s.pending = append(s.pending, snap)
	if s.delivering {
		s.deliverMu.Unlock()
		return
	}
	s.delivering = true
	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		if next.seq <= s.delivered {
			s.logger.Debug("dropping out-of-order snapshot",
				"state", next.State, "generation", next.Generation)
			continue
		}
		s.delivered = next.seq
		s.deliverMu.Unlock()
		s.listener(next)
		s.deliverMu.Lock()
	}
	s.delivering = false
	s.deliverMu.Unlock()
}
