// Package editor keeps the client's cached WordPress posts and the server's
// editor session in agreement while posts are loaded and edited.
package editor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jonesrussell/index-checker/internal/apierrors"
	"github.com/jonesrussell/index-checker/internal/appstate"
	"github.com/jonesrussell/index-checker/internal/models"
)

var (
	// ErrNothingToLoad is returned when no URLs are selected and nothing is cached.
	ErrNothingToLoad = errors.New("no URLs selected and no cached posts")
	// ErrSessionLost is returned when the server no longer knows the remembered
	// session. The caller must reload.
	ErrSessionLost = errors.New("editor session not found on server, reload required")
	// ErrPostNotLoaded is returned when editing a post that is not in the table.
	ErrPostNotLoaded = errors.New("post is not loaded")
)

// Source tells where the loaded posts came from.
type Source string

const (
	SourceCache   Source = "cache"
	SourceFetch   Source = "fetch"
	SourceSession Source = "session"
)

// Backend is the part of the REST API the reconciler needs.
type Backend interface {
	WordPressPosts(ctx context.Context, req *models.WordPressPostsRequest) (*models.WordPressPostsResponse, error)
	UpdateWordPressPost(ctx context.Context, postID int64, req *models.WordPressUpdateRequest) (*models.WordPressUpdateResponse, error)
	CreateSession(ctx context.Context, req *models.CreateSessionRequest) (*models.CreateSessionResponse, error)
	GetSession(ctx context.Context, id string) (*models.EditorSession, error)
	UpdateSessionPost(ctx context.Context, id string, postID int64, field string, value any) error
	Snapshot(ctx context.Context, id, name string) (*models.SnapshotResult, error)
	RefreshOutgoingLinks(ctx context.Context, id string) (*models.RefreshLinksResponse, error)
}

// LoadResult describes what Load produced.
type LoadResult struct {
	Posts     []models.Post
	SessionID string
	Source    Source
	Failed    []models.Post

	// SessionErr is set when cached posts were loaded but no editor session
	// could be verified or created for them. Edits to the session are skipped.
	SessionErr error
}

// EditResult is returned by EditField.
type EditResult struct {
	Post     models.Post
	Modified string
}

// Reconciler owns the in-memory post table of one editing run.
type Reconciler struct {
	api   Backend
	state *appstate.State
	site  *models.WPSite
	now   func() time.Time

	mu    sync.Mutex
	posts []models.Post
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClock replaces time.Now for modification timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// New returns a reconciler for site. site may be nil when only cached data is used.
func New(api Backend, state *appstate.State, site *models.WPSite, opts ...Option) *Reconciler {
	r := &Reconciler{api: api, state: state, site: site, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Posts returns a copy of the in-memory table.
func (r *Reconciler) Posts() []models.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Post(nil), r.posts...)
}

func (r *Reconciler) setPosts(posts []models.Post) {
	r.mu.Lock()
	r.posts = append([]models.Post(nil), posts...)
	r.mu.Unlock()
}

func isNotFound(err error) bool {
	code, ok := apierrors.StatusCode(err)
	return ok && code == http.StatusNotFound
}

// Load decides between the cache, the remembered session and a fresh fetch.
//
// With no selection the cache is trusted; its session is verified and
// recreated from the cache when the server lost it or cannot be reached.
// Session failures on this path are reported in LoadResult.SessionErr.
//
// With a selection, a cache whose first post shares the first selected URL's
// host is reused without any network call. Otherwise the session is forgotten
// and posts are fetched.
func (r *Reconciler) Load(ctx context.Context, selected []string) (*LoadResult, error) {
	selected = trimURLs(selected)

	cached, err := r.state.CachedPosts(ctx)
	if err != nil {
		return nil, err
	}

	if len(selected) == 0 {
		if len(cached) > 0 {
			return r.trustCache(ctx, cached)
		}
		return r.loadSession(ctx)
	}

	if len(cached) > 0 {
		if appstate.CacheHost(cached) == models.Hostname(selected[0]) {
			id, err := r.state.SessionID(ctx)
			if err != nil {
				return nil, err
			}
			r.setPosts(cached)
			return &LoadResult{Posts: cached, SessionID: id, Source: SourceCache, Failed: failed(cached)}, nil
		}
		if err := r.state.ForgetSession(ctx); err != nil {
			return nil, err
		}
	}

	return r.fetch(ctx, selected)
}

func (r *Reconciler) trustCache(ctx context.Context, cached []models.Post) (*LoadResult, error) {
	res := &LoadResult{Posts: cached, Source: SourceCache, Failed: failed(cached)}
	r.setPosts(cached)

	id, err := r.state.SessionID(ctx)
	if err != nil {
		return nil, err
	}

	if id != "" {
		_, err := r.api.GetSession(ctx, id)
		if err == nil {
			res.SessionID = id
			return res, nil
		}
		if !isNotFound(err) {
			res.SessionErr = fmt.Errorf("verify editor session: %w", err)
		}
		if forgetErr := r.state.ForgetSession(ctx); forgetErr != nil {
			return nil, forgetErr
		}
	}

	// Rows that failed to load have nothing to put in a session.
	ok := valid(cached)
	if len(ok) == 0 {
		return res, nil
	}

	id, err = r.createSession(ctx, ok)
	if err != nil {
		res.SessionErr = err
		return res, nil
	}
	res.SessionID = id
	res.SessionErr = nil
	return res, nil
}

func (r *Reconciler) loadSession(ctx context.Context) (*LoadResult, error) {
	id, err := r.state.SessionID(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrNothingToLoad
	}

	session, err := r.api.GetSession(ctx, id)
	if err != nil {
		if isNotFound(err) {
			if forgetErr := r.state.ForgetSession(ctx); forgetErr != nil {
				return nil, forgetErr
			}
			return nil, ErrNothingToLoad
		}
		return nil, fmt.Errorf("load editor session: %w", err)
	}

	posts := make([]models.Post, 0, len(session.Posts))
	for i := range session.Posts {
		posts = append(posts, session.Posts[i].ToPost())
	}
	if err := r.state.CachePosts(ctx, posts); err != nil {
		return nil, err
	}

	r.setPosts(posts)
	return &LoadResult{Posts: posts, SessionID: id, Source: SourceSession}, nil
}

func (r *Reconciler) fetch(ctx context.Context, selected []string) (*LoadResult, error) {
	if r.site == nil {
		return nil, models.ErrNoActiveSite
	}

	resp, err := r.api.WordPressPosts(ctx, &models.WordPressPostsRequest{
		Credentials: r.site.Credentials(),
		URLs:        selected,
		WPSiteID:    &r.site.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch posts: %w", err)
	}

	ok := valid(resp.Posts)
	bad := failed(resp.Posts)
	if len(ok) == 0 {
		cause := "no posts returned"
		if len(bad) > 0 {
			cause = bad[0].Error
		}
		return nil, fmt.Errorf("%w: %s", models.ErrNoValidPosts, cause)
	}

	// Failed rows stay cached so they remain visible in listings. The cache is
	// written first because a host change drops the remembered session.
	combined := resp.Posts
	if err := r.state.CachePosts(ctx, combined); err != nil {
		return nil, err
	}

	id, err := r.createSession(ctx, ok)
	if err != nil {
		return nil, err
	}

	r.setPosts(combined)
	return &LoadResult{Posts: combined, SessionID: id, Source: SourceFetch, Failed: bad}, nil
}

func (r *Reconciler) createSession(ctx context.Context, posts []models.Post) (string, error) {
	if len(posts) == 0 {
		return "", models.ErrNoValidPosts
	}

	req := &models.CreateSessionRequest{
		Domain: models.Hostname(posts[0].URL),
		Posts:  make([]models.EditorPost, 0, len(posts)),
	}
	if r.site != nil {
		req.WPSiteID = &r.site.ID
	}
	for i := range posts {
		req.Posts = append(req.Posts, models.EditorPostFromPost(&posts[i]))
	}

	resp, err := r.api.CreateSession(ctx, req)
	if err != nil {
		return "", fmt.Errorf("create editor session: %w", err)
	}
	if err := r.state.RememberSession(ctx, resp.SessionID); err != nil {
		return "", err
	}
	return resp.SessionID, nil
}

// EditField pushes one field of one post to WordPress, then records the new
// value in the table, the cache and the server session. Each call is one round trip.
func (r *Reconciler) EditField(ctx context.Context, postID int64, field string, value any) (*EditResult, error) {
	if r.site == nil {
		return nil, models.ErrNoActiveSite
	}

	post, err := r.lookup(ctx, postID)
	if err != nil {
		return nil, err
	}

	req := &models.WordPressUpdateRequest{
		Credentials: r.site.Credentials(),
		WPSiteID:    &r.site.ID,
		URL:         post.URL,
	}
	if err := setUpdateField(&req.PostUpdate, field, value); err != nil {
		return nil, err
	}

	resp, err := r.api.UpdateWordPressPost(ctx, postID, req)
	if err != nil {
		return nil, err
	}

	modified := r.now()
	if resp.Post != nil && resp.Post.DateModified != "" {
		if t, parseErr := time.Parse(appstate.ModifiedLayout, resp.Post.DateModified); parseErr == nil {
			modified = t
		}
	}
	stamp := appstate.FormatModified(modified)

	if err := appstate.SetPostField(&post, field, value); err != nil {
		return nil, err
	}
	post.DateModified = stamp
	r.replace(post)

	if err := r.state.UpdateCachedPost(ctx, postID, field, value, modified); err != nil {
		return nil, err
	}

	if err := r.syncSession(ctx, postID, field, value, stamp); err != nil {
		return nil, err
	}

	return &EditResult{Post: post, Modified: stamp}, nil
}

func (r *Reconciler) syncSession(ctx context.Context, postID int64, field string, value any, stamp string) error {
	id, err := r.state.SessionID(ctx)
	if err != nil || id == "" {
		return err
	}

	type change struct {
		field string
		value any
	}
	updates := []change{{models.FieldDateModified, stamp}}
	if models.IsSessionField(field) {
		updates = []change{{field, value}, {models.FieldDateModified, stamp}}
	}

	for _, u := range updates {
		if err := r.api.UpdateSessionPost(ctx, id, postID, u.field, u.value); err != nil {
			if isNotFound(err) {
				if forgetErr := r.state.ForgetSession(ctx); forgetErr != nil {
					return forgetErr
				}
				return ErrSessionLost
			}
			return fmt.Errorf("update session post: %w", err)
		}
	}
	return nil
}

func (r *Reconciler) lookup(ctx context.Context, postID int64) (models.Post, error) {
	r.mu.Lock()
	empty := len(r.posts) == 0
	r.mu.Unlock()

	if empty {
		cached, err := r.state.CachedPosts(ctx)
		if err != nil {
			return models.Post{}, err
		}
		r.setPosts(cached)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.posts {
		if p.ID == postID {
			return p, nil
		}
	}
	return models.Post{}, fmt.Errorf("%w: %d", ErrPostNotLoaded, postID)
}

func (r *Reconciler) replace(post models.Post) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.posts {
		if r.posts[i].ID == post.ID {
			r.posts[i] = post
			return
		}
	}
}

// SaveSnapshot saves the live session under name. Without a remembered
// session it fails with models.ErrNoSession before any network call.
func (r *Reconciler) SaveSnapshot(ctx context.Context, name string) (*models.SnapshotResult, error) {
	id, err := r.state.SessionID(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, models.ErrNoSession
	}

	res, err := r.api.Snapshot(ctx, id, strings.TrimSpace(name))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSessionLost
		}
		return nil, err
	}
	if res.Message == "" {
		res.Message = SnapshotMessage(res.Action)
	}
	return res, nil
}

// SnapshotMessage is the confirmation shown for a snapshot action.
func SnapshotMessage(action string) string {
	if action == models.SnapshotOverwritten {
		return "Snapshot overwritten successfully"
	}
	return "Snapshot created successfully"
}

// RefreshLinks asks the server to re-extract outgoing links, then copies the
// refreshed links into the table and the cache.
func (r *Reconciler) RefreshLinks(ctx context.Context) (*models.RefreshLinksResponse, error) {
	id, err := r.state.SessionID(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, models.ErrNoSession
	}

	resp, err := r.api.RefreshOutgoingLinks(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSessionLost
		}
		return nil, err
	}
	if resp.Session == nil {
		return resp, nil
	}

	links := make(map[int64][]models.OutgoingLink, len(resp.Session.Posts))
	for i := range resp.Session.Posts {
		links[resp.Session.Posts[i].PostID] = resp.Session.Posts[i].OutgoingLinks
	}

	cached, err := r.state.CachedPosts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range cached {
		if l, ok := links[cached[i].ID]; ok {
			cached[i].OutgoingLinks = l
		}
	}
	if err := r.state.CachePosts(ctx, cached); err != nil {
		return nil, err
	}

	r.setPosts(cached)
	return resp, nil
}

func trimURLs(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, u := range raw {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

func valid(posts []models.Post) []models.Post {
	var out []models.Post
	for i := range posts {
		if posts[i].Valid() {
			out = append(out, posts[i])
		}
	}
	return out
}

func failed(posts []models.Post) []models.Post {
	var out []models.Post
	for i := range posts {
		if !posts[i].Valid() {
			out = append(out, posts[i])
		}
	}
	return out
}
