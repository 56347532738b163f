package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/rmjobsites-storefront/pkg/logger"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/storefront"
)

const (
	DefaultSearchDelay = 300 * time.Millisecond
	DefaultSearchLimit = 5
)

// SearchFunc performs one product lookup.
type SearchFunc func(ctx context.Context, query string, limit int) ([]storefront.Product, error)

// SearchState is the search box as rendered.
type SearchState struct {
	Query     string               `json:"query"`
	Results   []storefront.Product `json:"results"`
	Searching bool                 `json:"searching"`
}

// Searcher debounces search-as-you-type. Each input cancels the pending lookup (and
// any lookup already in flight) before scheduling a new one.
type Searcher struct {
	search SearchFunc
	delay  time.Duration
	limit  int
	logger *logger.Logger

	mu     sync.Mutex
	seq    uint64
	timer  *time.Timer
	cancel context.CancelFunc
	state  SearchState
	closed bool
}

// NewSearcher wires a debounced searcher. Non-positive delay and limit take defaults.
func NewSearcher(search SearchFunc, delay time.Duration, limit int, logg *logger.Logger) (*Searcher, error) {
	if search == nil {
		return nil, errors.New("search func required")
	}
	if delay <= 0 {
		delay = DefaultSearchDelay
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Searcher{
		search: search,
		delay:  delay,
		limit:  limit,
		logger: logg,
		state:  SearchState{Results: []storefront.Product{}},
	}, nil
}

// Input records a new query and schedules its lookup.
func (s *Searcher) Input(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.seq++
	s.stopLocked()

	s.state.Query = query
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		s.state.Results = []storefront.Product{}
		s.state.Searching = false
		return
	}
	s.state.Searching = true
	seq := s.seq
	s.timer = time.AfterFunc(s.delay, func() { s.run(seq, trimmed) })
}

func (s *Searcher) run(seq uint64, query string) {
	s.mu.Lock()
	if seq != s.seq || s.closed {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	results, err := s.search(ctx, query, s.limit)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		return
	}
	s.state.Searching = false
	s.cancel = nil
	if err != nil {
		s.logger.Warn(s.logger.WithField(ctx, "error", err.Error()), "catalog.search_failed")
		s.state.Results = []storefront.Product{}
		return
	}
	if results == nil {
		results = []storefront.Product{}
	}
	s.state.Results = results
}

// State returns the current search box state.
func (s *Searcher) State() SearchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.state
	state.Results = append([]storefront.Product{}, s.state.Results...)
	return state
}

// Close stops pending and in-flight lookups. Later inputs are ignored.
func (s *Searcher) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.closed = true
	s.stopLocked()
	s.state.Searching = false
}

func (s *Searcher) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
