package ui

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/kanvas/pkg/logging/events"
	"github.com/vanderheijden86/kanvas/pkg/model"
)

// Catalog is the read side of the store the UI depends on.
type Catalog interface {
	Categories(ctx context.Context) ([]model.Category, error)
	FilterNFTs(ctx context.Context, q model.ListingQuery) (model.ListingPage, error)
	FindUserByAddress(ctx context.Context, address string) (model.User, error)
}

// FetchError wraps a failed listing query with the generation that issued it.
type FetchError struct {
	Generation uint64
	Query      model.ListingQuery
	Cause      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch listings (generation %d): %v", e.Generation, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// ListingsLoadedMsg carries the result of one fetch.
type ListingsLoadedMsg struct {
	Source     string
	Generation uint64
	Query      model.ListingQuery
	Page       model.ListingPage
}

// ListingsErrorMsg reports a failed fetch.
type ListingsErrorMsg struct {
	Source string
	Err    *FetchError
}

// ListingFetcher runs listing queries off the UI goroutine. Every fetch gets
// a new generation number and cancels the fetch before it; the UI applies a
// result only while its generation is still the latest, so the last request
// always wins regardless of completion order.
type ListingFetcher struct {
	source  string
	catalog Catalog
	timeout time.Duration

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
}

// NewListingFetcher creates a fetcher. source tags its messages so several
// fetchers (storefront, profile) can share one program.
func NewListingFetcher(source string, catalog Catalog, timeout time.Duration) *ListingFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ListingFetcher{source: source, catalog: catalog, timeout: timeout}
}

// Fetch starts a new generation for q and returns the command performing it.
func (f *ListingFetcher) Fetch(q model.ListingQuery) tea.Cmd {
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	f.generation++
	gen := f.generation
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	f.cancel = cancel
	f.mu.Unlock()

	events.Listing.Fetch(gen, q.CategoryIDs, q.Page)

	return func() tea.Msg {
		defer cancel()
		page, err := f.run(ctx, q)
		if err != nil {
			return ListingsErrorMsg{Source: f.source, Err: &FetchError{Generation: gen, Query: q, Cause: err}}
		}
		return ListingsLoadedMsg{Source: f.source, Generation: gen, Query: q, Page: page}
	}
}

// run executes the query, turning a panic in the catalog into an error.
func (f *ListingFetcher) run(ctx context.Context, q model.ListingQuery) (page model.ListingPage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return f.catalog.FilterNFTs(ctx, q)
}

// IsCurrent reports whether gen is the latest generation issued.
func (f *ListingFetcher) IsCurrent(gen uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	current := gen == f.generation
	if !current {
		events.Listing.Stale(gen, f.generation)
	}
	return current
}

// Generation returns the latest generation issued.
func (f *ListingFetcher) Generation() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generation
}

// Cancel aborts the in-flight fetch, if any.
func (f *ListingFetcher) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}

// ProfileLoadedMsg carries the user shown on the profile page.
type ProfileLoadedMsg struct {
	Address string
	User    model.User
}

// ProfileErrorMsg reports a failed profile lookup; store.ErrNotFound means
// no such user.
type ProfileErrorMsg struct {
	Address string
	Err     error
}

// LoadProfileCmd looks up the user owning address.
func LoadProfileCmd(catalog Catalog, address string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		u, err := catalog.FindUserByAddress(ctx, address)
		if err != nil {
			return ProfileErrorMsg{Address: address, Err: err}
		}
		return ProfileLoadedMsg{Address: address, User: u}
	}
}
