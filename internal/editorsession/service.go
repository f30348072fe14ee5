// Package editorsession manages server-side editor sessions: working copies
// of the posts a client is editing, plus named snapshots of them.
package editorsession

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/index-checker/internal/links"
	"github.com/jonesrussell/index-checker/internal/logger"
	"github.com/jonesrussell/index-checker/internal/models"
)

const (
	// DefaultMaxAge is how long an untouched working session is kept.
	DefaultMaxAge = 24 * time.Hour
	// DefaultRefreshWorkers bounds concurrent post fetches during a link refresh.
	DefaultRefreshWorkers = 5
)

// ErrNoSite is returned when a session has no WordPress site and none matches its domain.
var ErrNoSite = errors.New("no WordPress site associated with this session")

// Store persists sessions.
type Store interface {
	Create(ctx context.Context, session *models.EditorSession, posts []models.EditorPost) error
	CreateSnapshot(ctx context.Context, session *models.EditorSession, posts []models.EditorPost) error
	ReplaceSnapshot(ctx context.Context, oldID string, session *models.EditorSession, posts []models.EditorPost) error
	Get(ctx context.Context, sessionID string) (*models.EditorSession, error)
	UpdatePostField(ctx context.Context, sessionID string, postID int64, field string, value any) error
	ReplacePosts(ctx context.Context, sessionID string, posts []models.EditorPost) (int, error)
	FindSnapshot(ctx context.Context, siteID *int64, domain string) (*models.EditorSession, error)
	List(ctx context.Context, filter models.SessionFilter) ([]models.EditorSession, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
	SetSite(ctx context.Context, sessionID string, siteID int64) error
}

// Sites resolves WordPress site configurations.
type Sites interface {
	Get(ctx context.Context, id int64) (*models.WPSite, error)
	FindByDomain(ctx context.Context, domain string) (*models.WPSite, error)
}

// PostFetcher loads posts from a WordPress site.
type PostFetcher interface {
	FetchPosts(ctx context.Context, creds models.Credentials, urls []string, workers int) []models.Post
}

// Recorder receives session metrics.
type Recorder interface {
	SessionCreated()
	SessionsCleanedUp(n int64)
}

// Service implements the editor session operations.
type Service struct {
	store          Store
	sites          Sites
	posts          PostFetcher
	recorder       Recorder
	maxAge         time.Duration
	refreshWorkers int
	now            func() time.Time
	log            logger.Logger

	// snapshotMu serializes the find-then-save of a snapshot so two saves
	// for one domain cannot both create.
	snapshotMu sync.Mutex
}

// Deps groups the collaborators of a Service.
type Deps struct {
	Store          Store
	Sites          Sites
	Posts          PostFetcher
	Recorder       Recorder
	MaxAge         time.Duration
	RefreshWorkers int
	Clock          func() time.Time
	Logger         logger.Logger
}

// NewService creates a Service.
func NewService(d Deps) *Service {
	s := &Service{
		store:          d.Store,
		sites:          d.Sites,
		posts:          d.Posts,
		recorder:       d.Recorder,
		maxAge:         d.MaxAge,
		refreshWorkers: d.RefreshWorkers,
		now:            d.Clock,
		log:            d.Logger,
	}
	if s.maxAge <= 0 {
		s.maxAge = DefaultMaxAge
	}
	if s.refreshWorkers <= 0 {
		s.refreshWorkers = DefaultRefreshWorkers
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = logger.NewNop()
	}
	return s
}

// Create starts a working session for domain.
func (s *Service) Create(
	ctx context.Context, siteID *int64, domain string, posts []models.EditorPost,
) (*models.CreateSessionResponse, error) {
	domain = strings.TrimSpace(domain)
	if domain == "" || len(posts) == 0 {
		return nil, fmt.Errorf("%w: domain and posts are required", models.ErrInvalidInput)
	}

	session := &models.EditorSession{
		SessionID: uuid.NewString(),
		WPSiteID:  siteID,
		Domain:    domain,
	}
	if err := s.store.Create(ctx, session, posts); err != nil {
		return nil, err
	}

	if s.recorder != nil {
		s.recorder.SessionCreated()
	}
	s.log.Info("Editor session created",
		logger.String("session_id", session.SessionID),
		logger.String("domain", domain),
		logger.Int("total_posts", session.TotalPosts),
	)

	return &models.CreateSessionResponse{
		SessionID:  session.SessionID,
		Domain:     domain,
		TotalPosts: session.TotalPosts,
	}, nil
}

// Get returns a session with its posts.
func (s *Service) Get(ctx context.Context, id string) (*models.EditorSession, error) {
	return s.store.Get(ctx, id)
}

// UpdatePost sets one field of one session post.
func (s *Service) UpdatePost(ctx context.Context, id string, postID int64, field string, value any) error {
	if field == "" {
		return fmt.Errorf("%w: field is required", models.ErrInvalidInput)
	}
	return s.store.UpdatePostField(ctx, id, postID, field, value)
}

// ReplacePosts swaps the session's posts and returns how many were stored.
func (s *Service) ReplacePosts(ctx context.Context, id string, posts []models.EditorPost) (int, error) {
	return s.store.ReplacePosts(ctx, id, posts)
}

// List returns sessions matching filter grouped by domain, and the total.
func (s *Service) List(ctx context.Context, filter models.SessionFilter) (map[string][]models.EditorSession, int, error) {
	sessions, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	grouped := make(map[string][]models.EditorSession)
	for _, session := range sessions {
		grouped[session.Domain] = append(grouped[session.Domain], session)
	}
	return grouped, len(sessions), nil
}

// Delete removes a session.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("Editor session deleted", logger.String("session_id", id))
	return nil
}

// sessionDomain returns the session's domain, falling back to the host of its first post.
func sessionDomain(session *models.EditorSession) string {
	if session.Domain != "" {
		return session.Domain
	}
	if len(session.Posts) > 0 {
		return models.Hostname(session.Posts[0].URL)
	}
	return ""
}

// resolveSite returns the session's site id. A session without one is matched
// to a site by domain and the match is recorded on the session.
func (s *Service) resolveSite(ctx context.Context, session *models.EditorSession, domain string) (*int64, error) {
	if session.WPSiteID != nil {
		return session.WPSiteID, nil
	}

	site, err := s.sites.FindByDomain(ctx, domain)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil //nolint:nilnil // no matching site is not an error
		}
		return nil, err
	}

	if err := s.store.SetSite(ctx, session.SessionID, site.ID); err != nil {
		return nil, err
	}
	session.WPSiteID = &site.ID
	s.log.Info("Linked editor session to site",
		logger.String("session_id", session.SessionID),
		logger.Int64("wp_site_id", site.ID),
	)
	return session.WPSiteID, nil
}

// Snapshot stores a named copy of the session. A snapshot that already exists
// for the same site and domain is replaced.
func (s *Service) Snapshot(ctx context.Context, id, name string) (*models.SnapshotResult, error) {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	domain := sessionDomain(session)
	if domain == "" {
		return nil, fmt.Errorf("%w: cannot determine session domain", models.ErrInvalidInput)
	}

	siteID, err := s.resolveSite(ctx, session, domain)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = "Snapshot - " + domain
	}

	s.snapshotMu.Lock()
	defer s.snapshotMu.Unlock()

	var replaces string
	existing, err := s.store.FindSnapshot(ctx, siteID, domain)
	switch {
	case err == nil:
		replaces = existing.SessionID
	case errors.Is(err, models.ErrNotFound):
	default:
		return nil, err
	}

	snapshot := &models.EditorSession{
		SessionID:   uuid.NewString(),
		WPSiteID:    siteID,
		Domain:      domain,
		SessionName: &name,
	}

	action := models.SnapshotCreated
	if replaces != "" {
		action = models.SnapshotOverwritten
		err = s.store.ReplaceSnapshot(ctx, replaces, snapshot, session.Posts)
	} else {
		err = s.store.CreateSnapshot(ctx, snapshot, session.Posts)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("Editor snapshot saved",
		logger.String("session_id", id),
		logger.String("snapshot_id", snapshot.SessionID),
		logger.String("action", action),
	)

	return &models.SnapshotResult{
		SnapshotID: snapshot.SessionID,
		Action:     action,
		Message:    fmt.Sprintf("Snapshot %s successfully", action),
	}, nil
}

// RefreshOutgoingLinks refetches the session's posts from its site and stores
// newly extracted outgoing links. Posts whose content yields no links are left alone.
func (s *Service) RefreshOutgoingLinks(ctx context.Context, id string) (*models.RefreshLinksResponse, error) {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	siteID, err := s.resolveSite(ctx, session, sessionDomain(session))
	if err != nil {
		return nil, err
	}
	if siteID == nil {
		return nil, ErrNoSite
	}

	site, err := s.sites.Get(ctx, *siteID)
	if err != nil {
		return nil, fmt.Errorf("load WordPress site %d: %w", *siteID, err)
	}

	urls := make([]string, 0, len(session.Posts))
	for _, p := range session.Posts {
		if p.URL != "" {
			urls = append(urls, p.URL)
		}
	}

	fetched := s.posts.FetchPosts(ctx, site.Credentials(), urls, s.refreshWorkers)

	updated := 0
	for i := range fetched {
		post := &fetched[i]
		if !post.Valid() {
			continue
		}
		found := links.ExtractOutgoing(post.Content, post.URL)
		if len(found) == 0 {
			continue
		}
		if err := s.store.UpdatePostField(ctx, id, post.ID, models.FieldOutgoingLinks, found); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				continue
			}
			return nil, err
		}
		updated++
	}

	refreshed, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.log.Info("Outgoing links refreshed",
		logger.String("session_id", id),
		logger.Int("updated", updated),
		logger.Int("total", len(session.Posts)),
	)

	return &models.RefreshLinksResponse{
		Success:      true,
		UpdatedCount: updated,
		TotalPosts:   len(session.Posts),
		Session:      refreshed,
	}, nil
}

// CleanupStale deletes working sessions untouched for longer than the max age.
func (s *Service) CleanupStale(ctx context.Context) error {
	cutoff := s.now().Add(-s.maxAge)
	n, err := s.store.DeleteStale(ctx, cutoff)
	if err != nil {
		return err
	}
	if s.recorder != nil {
		s.recorder.SessionsCleanedUp(n)
	}
	if n > 0 {
		s.log.Info("Stale editor sessions removed", logger.Int64("count", n))
	}
	return nil
}
