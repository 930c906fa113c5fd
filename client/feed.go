package client

import (
	"context"
	"sync"

	"feedboard/domain"
	"feedboard/feed"
)

// Phase is the feed view's high-level state.
type Phase int

const (
	// PhaseLoading means a page fetch is in flight and items are
	// cleared.
	PhaseLoading Phase = iota
	// PhaseReady means items and total reflect the last successful
	// fetch, possibly patched by change events since.
	PhaseReady
	// PhaseError means the last fetch failed; Err carries the cause.
	PhaseError
)

// PageState is one client's local view of its current feed page.
type PageState struct {
	Items []domain.Post
	Page  int
	Total int
}

// reduce applies one change event to the page state and reports whether
// the page must be refetched. Creates grow the view in place (page 1
// prepends and evicts past the page size, other pages only count),
// updates replace in place, deletes always force a refetch: removing an
// item shifts every later page boundary and only the server knows the
// replacement item.
func reduce(s PageState, ev domain.PostEvent, perPage int) (PageState, bool) {
	switch ev.Action {
	case domain.ActionCreate:
		s.Total++
		if s.Page != 1 {
			return s, false
		}
		items := make([]domain.Post, 0, perPage)
		items = append(items, *ev.Post)
		for _, p := range s.Items {
			if len(items) == perPage {
				break
			}
			items = append(items, p)
		}
		s.Items = items
		return s, false

	case domain.ActionUpdate:
		for i := range s.Items {
			if s.Items[i].ID == ev.Post.ID {
				s.Items[i] = *ev.Post
				break
			}
		}
		return s, false

	case domain.ActionDelete:
		return s, true
	}
	return s, false
}

// Feed keeps one session's paginated view of posts, populated by
// LoadPage and kept in sync by Apply.
type Feed struct {
	api     *Client
	perPage int

	mu    sync.Mutex
	state PageState
	phase Phase
	err   error
}

func NewFeed(api *Client) *Feed {
	return &Feed{
		api:     api,
		perPage: feed.PerPage,
		state:   PageState{Page: 1},
	}
}

// LoadPage fetches page n and replaces the local view with the result.
func (f *Feed) LoadPage(ctx context.Context, n int) error {
	if n < 1 {
		n = 1
	}
	f.mu.Lock()
	f.phase = PhaseLoading
	f.state.Items = nil
	f.state.Page = n
	f.mu.Unlock()

	posts, total, err := f.api.FetchPage(ctx, n)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.phase = PhaseError
		f.err = err
		return err
	}
	f.state.Items = posts
	f.state.Total = total
	f.phase = PhaseReady
	f.err = nil
	return nil
}

// Next and Previous page helpers mirror the original paginator.
func (f *Feed) Next(ctx context.Context) error {
	return f.LoadPage(ctx, f.Snapshot().Page+1)
}

func (f *Feed) Previous(ctx context.Context) error {
	return f.LoadPage(ctx, f.Snapshot().Page-1)
}

// Apply reconciles one pushed change event against the local page,
// refetching the current page when the event demands it.
func (f *Feed) Apply(ctx context.Context, ev domain.PostEvent) error {
	f.mu.Lock()
	next, reload := reduce(f.state, ev, f.perPage)
	f.state = next
	page := f.state.Page
	f.mu.Unlock()

	if reload {
		return f.LoadPage(ctx, page)
	}
	return nil
}

// Snapshot returns a copy of the current view.
func (f *Feed) Snapshot() PageState {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]domain.Post, len(f.state.Items))
	copy(items, f.state.Items)
	return PageState{Items: items, Page: f.state.Page, Total: f.state.Total}
}

// Phase returns the view's current phase and, for PhaseError, the
// error that caused it. An errored view is distinct from an empty one.
func (f *Feed) Phase() (Phase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase, f.err
}

// LastPage computes the highest valid page number for the known total.
func (f *Feed) LastPage() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state.Total == 0 {
		return 1
	}
	return (f.state.Total + f.perPage - 1) / f.perPage
}
