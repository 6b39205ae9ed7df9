package console

import (
	"context"
	"log/slog"
	"sync"

	"warden/internal/models"
	"warden/internal/observability"
	"warden/internal/service"
)

// UserLister loads the full user set.
type UserLister interface {
	List(ctx context.Context) ([]models.User, error)
}

// ReviewLister loads reconciled approval reviews.
type ReviewLister interface {
	ListReviews(ctx context.Context) ([]service.Review, error)
}

// ChangeFeed delivers updated user rows. The returned func unsubscribes.
type ChangeFeed interface {
	SubscribeUserUpdates(ctx context.Context, onUpdate func(models.User)) (func(), error)
}

// Session is one admin's live view of the user set.
type Session struct {
	users   UserLister
	reviews ReviewLister
	feed    ChangeFeed
	cache   *UserCache

	mu          sync.Mutex
	lastErr     error
	unsubscribe func()
	onChange    func(models.User)
}

// NewSession creates a session. feed may be nil, in which case the cache only
// changes on Refresh.
func NewSession(users UserLister, reviews ReviewLister, feed ChangeFeed) *Session {
	return &Session{
		users:   users,
		reviews: reviews,
		feed:    feed,
		cache:   NewUserCache(),
	}
}

// OnChange registers fn to run after a feed update changed the cache.
// It runs on the feed goroutine.
func (s *Session) OnChange(fn func(models.User)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Refresh reloads users and reviews. On failure the previous snapshot stays
// in place and the error is kept for LastError.
func (s *Session) Refresh(ctx context.Context) error {
	err := s.load(ctx)

	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	if err != nil {
		slog.WarnContext(ctx, "console refresh failed, keeping cached data", slog.String("error", err.Error()))
	}
	return err
}

func (s *Session) load(ctx context.Context) error {
	s.cache.BeginRefresh()
	users, err := s.users.List(ctx)
	if err != nil {
		s.cache.AbortRefresh()
		return err
	}
	var reviews []service.Review
	if s.reviews != nil {
		if reviews, err = s.reviews.ListReviews(ctx); err != nil {
			s.cache.AbortRefresh()
			return err
		}
	}
	s.cache.Replace(users, reviews)
	return nil
}

// LastError is the error of the most recent Refresh, or nil.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Start subscribes to the change feed. Calling it again is a no-op.
func (s *Session) Start(ctx context.Context) error {
	if s.feed == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribe != nil {
		return nil
	}
	unsub, err := s.feed.SubscribeUserUpdates(ctx, s.apply)
	if err != nil {
		return err
	}
	s.unsubscribe = unsub
	return nil
}

func (s *Session) apply(u models.User) {
	if !s.cache.Merge(u) {
		observability.ChangeFeedEvents.WithLabelValues("ignored").Inc()
		return
	}
	observability.ChangeFeedEvents.WithLabelValues("merged").Inc()

	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(u)
	}
}

// Close unsubscribes from the change feed.
func (s *Session) Close() {
	s.mu.Lock()
	unsub := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// View derives the page for state from the cached users.
func (s *Session) View(state *ViewState) PageView {
	return state.Apply(s.cache.Users())
}

// Reviews returns cached reviews filtered by status.
func (s *Session) Reviews(status string) []service.Review {
	return FilterReviews(s.cache.Reviews(), status)
}

// Cache exposes the session cache.
func (s *Session) Cache() *UserCache {
	return s.cache
}
