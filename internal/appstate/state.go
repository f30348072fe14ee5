// Package appstate holds the client's application state behind explicit
// actions. The CLI and the editor reconciler share one *State instead of
// reading and writing storage keys directly.
package appstate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonesrussell/index-checker/internal/kvstore"
	"github.com/jonesrussell/index-checker/internal/models"
)

// Storage keys.
const (
	KeyAuthToken   = "auth_token"
	KeyActiveSite  = "active_site"
	KeyCachedPosts = "wp_editor_cached_posts"
	KeySessionID   = "wp_editor_session_id"
)

// State mediates all reads and writes of client state.
//
// Persistent data survives between runs. The editor session ID lives in the
// transient store and is mirrored to the persistent one so a later run can
// verify and reuse it.
type State struct {
	persistent kvstore.Store
	transient  kvstore.Store

	mu sync.Mutex
}

// New returns a State over the given stores.
func New(persistent, transient kvstore.Store) *State {
	return &State{persistent: persistent, transient: transient}
}

// NewInMemory returns a State whose stores both live in memory.
func NewInMemory() *State {
	return New(kvstore.NewMemory(), kvstore.NewMemory())
}

// Login stores the bearer token.
func (s *State) Login(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persistent.Set(ctx, KeyAuthToken, token, 0); err != nil {
		return fmt.Errorf("store auth token: %w", err)
	}
	return nil
}

// Token returns the stored bearer token, or "" when logged out.
func (s *State) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var token string
	if _, err := s.persistent.Get(ctx, KeyAuthToken, &token); err != nil {
		return "", fmt.Errorf("read auth token: %w", err)
	}
	return token, nil
}

// Logout drops the bearer token.
func (s *State) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persistent.Delete(ctx, KeyAuthToken); err != nil {
		return fmt.Errorf("delete auth token: %w", err)
	}
	return nil
}

// SetActiveSite mirrors the active WordPress site configuration.
func (s *State) SetActiveSite(ctx context.Context, site *models.WPSite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if site == nil {
		return s.persistent.Delete(ctx, KeyActiveSite)
	}
	if err := s.persistent.Set(ctx, KeyActiveSite, site, 0); err != nil {
		return fmt.Errorf("store active site: %w", err)
	}
	return nil
}

// ActiveSite returns the mirrored active site, or nil when none is set.
func (s *State) ActiveSite(ctx context.Context) (*models.WPSite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var site models.WPSite
	found, err := s.persistent.Get(ctx, KeyActiveSite, &site)
	if err != nil {
		return nil, fmt.Errorf("read active site: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &site, nil
}

// SessionID returns the remembered editor session ID. A transient miss falls
// back to the persistent mirror and re-seeds the transient store.
func (s *State) SessionID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessionID(ctx)
}

func (s *State) sessionID(ctx context.Context) (string, error) {
	var id string
	found, err := s.transient.Get(ctx, KeySessionID, &id)
	if err != nil {
		return "", fmt.Errorf("read session id: %w", err)
	}
	if found {
		return id, nil
	}

	found, err = s.persistent.Get(ctx, KeySessionID, &id)
	if err != nil {
		return "", fmt.Errorf("read session id: %w", err)
	}
	if !found {
		return "", nil
	}
	if err := s.transient.Set(ctx, KeySessionID, id, 0); err != nil {
		return "", fmt.Errorf("store session id: %w", err)
	}
	return id, nil
}

// RememberSession records id as the live editor session.
func (s *State) RememberSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.transient.Set(ctx, KeySessionID, id, 0); err != nil {
		return fmt.Errorf("store session id: %w", err)
	}
	if err := s.persistent.Set(ctx, KeySessionID, id, 0); err != nil {
		return fmt.Errorf("store session id: %w", err)
	}
	return nil
}

// ForgetSession drops the remembered editor session.
func (s *State) ForgetSession(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.forgetSession(ctx)
}

func (s *State) forgetSession(ctx context.Context) error {
	if err := s.transient.Delete(ctx, KeySessionID); err != nil {
		return fmt.Errorf("delete session id: %w", err)
	}
	if err := s.persistent.Delete(ctx, KeySessionID); err != nil {
		return fmt.Errorf("delete session id: %w", err)
	}
	return nil
}

// CachedPosts returns the cached post list, successes and failures together.
func (s *State) CachedPosts(ctx context.Context) ([]models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cachedPosts(ctx)
}

func (s *State) cachedPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if _, err := s.persistent.Get(ctx, KeyCachedPosts, &posts); err != nil {
		return nil, fmt.Errorf("read cached posts: %w", err)
	}
	return posts, nil
}

// CachePosts replaces the cached post list. When the new list belongs to a
// different host than the cached one, the remembered session is dropped.
func (s *State) CachePosts(ctx context.Context, posts []models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, err := s.cachedPosts(ctx)
	if err != nil {
		return err
	}
	if len(old) > 0 && len(posts) > 0 && CacheHost(old) != CacheHost(posts) {
		if err := s.forgetSession(ctx); err != nil {
			return err
		}
	}

	if err := s.persistent.Set(ctx, KeyCachedPosts, posts, 0); err != nil {
		return fmt.Errorf("store cached posts: %w", err)
	}
	return nil
}

// ClearCache drops the cached posts.
func (s *State) ClearCache(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persistent.Delete(ctx, KeyCachedPosts); err != nil {
		return fmt.Errorf("delete cached posts: %w", err)
	}
	return nil
}

// UpdateCachedPost applies one field edit to the cached copy of a post and
// stamps it with modified. A post missing from the cache is not an error.
func (s *State) UpdateCachedPost(ctx context.Context, postID int64, field string, value any, modified time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts, err := s.cachedPosts(ctx)
	if err != nil {
		return err
	}

	idx := -1
	for i := range posts {
		if posts[i].ID == postID || (posts[i].ID == 0 && posts[i].PostID == postID) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	if err := SetPostField(&posts[idx], field, value); err != nil {
		return err
	}
	posts[idx].DateModified = FormatModified(modified)

	if err := s.persistent.Set(ctx, KeyCachedPosts, posts, 0); err != nil {
		return fmt.Errorf("store cached posts: %w", err)
	}
	return nil
}

// CacheHost returns the host of the first post's URL.
func CacheHost(posts []models.Post) string {
	if len(posts) == 0 {
		return ""
	}
	return models.Hostname(posts[0].URL)
}
