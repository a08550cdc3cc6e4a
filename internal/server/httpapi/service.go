package httpapi

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/convivial/salon/internal/common"
	"github.com/convivial/salon/internal/server/auth"
	"github.com/convivial/salon/internal/server/coffee"
	"github.com/convivial/salon/internal/server/models"
	"github.com/convivial/salon/internal/server/repositories/repomanager"
	"github.com/convivial/salon/internal/server/storage"
	"github.com/samber/lo"
)

const collisionHistoryWindow = 7 * 24 * time.Hour

// Presigner is the slice of the storage service the HTTP API needs.
type Presigner interface {
	PresignedPutURL(ctx context.Context, discoveryID string) (key, url string, err error)
}

var _ Presigner = (*storage.Service)(nil)

// Service implements the REST operations over the repositories. The
// WebSocket path owns real-time fan-out; writes made here are quiet.
type Service struct {
	db        *sql.DB
	repos     repomanager.RepositoryManager
	coffee    *coffee.Generator
	presigner Presigner
}

func NewService(db *sql.DB, repos repomanager.RepositoryManager, coffee *coffee.Generator, presigner Presigner) *Service {
	return &Service{db: db, repos: repos, coffee: coffee, presigner: presigner}
}

type CreateDiscoveryRequest struct {
	Query   string `json:"query" validate:"required"`
	URL     string `json:"url" validate:"required,url"`
	Title   string `json:"title" validate:"required"`
	Snippet string `json:"snippet"`
	Engine  string `json:"engine"`
}

type DiscoveryResponse struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Query        string    `json:"query"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	Snippet      string    `json:"snippet,omitempty"`
	Engine       string    `json:"engine,omitempty"`
	DiscoveredAt time.Time `json:"discoveredAt"`
}

type CreateCollectionRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description"`
	Type        string `json:"type"`
	IsShared    bool   `json:"isShared"`
}

type CollectionResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Type        string    `json:"type,omitempty"`
	IsShared    bool      `json:"isShared"`
	ItemCount   int       `json:"itemCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

type AddCollectionItemRequest struct {
	DiscoveryID string `json:"discoveryId" validate:"required,uuid"`
}

type CollisionResponse struct {
	Users      []string  `json:"users"`
	Query      string    `json:"query"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
}

type PendingGiftResponse struct {
	CapsuleID string    `json:"capsuleId"`
	From      string    `json:"from"`
	Message   string    `json:"message,omitempty"`
	WrapStyle string    `json:"wrapStyle,omitempty"`
	RevealAt  time.Time `json:"revealAt"`
	CreatedAt time.Time `json:"createdAt"`
}

type UploadURLRequest struct {
	DiscoveryID string `json:"discoveryId" validate:"required,uuid"`
}

type UploadURLResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

func (s *Service) RecentDiscoveries(ctx context.Context, limit int) ([]DiscoveryResponse, error) {
	views, err := s.repos.Discoveries(s.db).ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list discoveries: %v", common.ErrPersistence, err)
	}
	return lo.Map(views, func(v models.DiscoveryView, _ int) DiscoveryResponse {
		return discoveryResponse(v)
	}), nil
}

// CreateDiscovery persists without any fan-out; REST writes show up in
// history, live events come from the WebSocket path.
func (s *Service) CreateDiscovery(ctx context.Context, identity auth.Identity, req *CreateDiscoveryRequest) (*DiscoveryResponse, error) {
	d := &models.Discovery{
		UserID:  identity.UserID,
		Query:   req.Query,
		URL:     req.URL,
		Title:   req.Title,
		Snippet: req.Snippet,
		Engine:  req.Engine,
	}
	if err := s.repos.Discoveries(s.db).Create(ctx, d); err != nil {
		return nil, fmt.Errorf("%w: create discovery: %v", common.ErrPersistence, err)
	}
	resp := discoveryResponse(models.DiscoveryView{Discovery: *d, Username: identity.Username})
	return &resp, nil
}

func (s *Service) Collections(ctx context.Context, userID string) ([]CollectionResponse, error) {
	cols, err := s.repos.Collections(s.db).List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list collections: %v", common.ErrPersistence, err)
	}
	return lo.Map(cols, func(c models.Collection, _ int) CollectionResponse {
		return collectionResponse(c)
	}), nil
}

func (s *Service) CreateCollection(ctx context.Context, identity auth.Identity, req *CreateCollectionRequest) (*CollectionResponse, error) {
	c := &models.Collection{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		OwnerID:     identity.UserID,
		IsShared:    req.IsShared,
	}
	if err := s.repos.Collections(s.db).Create(ctx, c); err != nil {
		return nil, fmt.Errorf("%w: create collection: %v", common.ErrPersistence, err)
	}
	resp := collectionResponse(*c)
	return &resp, nil
}

func (s *Service) AddCollectionItem(ctx context.Context, collectionID, discoveryID string) error {
	if err := s.repos.Collections(s.db).AddItem(ctx, collectionID, discoveryID); err != nil {
		return fmt.Errorf("%w: add collection item: %v", common.ErrPersistence, err)
	}
	return nil
}

func (s *Service) MorningCoffee(ctx context.Context, day time.Time) (*models.Digest, error) {
	return s.coffee.Cached(ctx, day)
}

func (s *Service) RecentCollisions(ctx context.Context) ([]CollisionResponse, error) {
	since := time.Now().UTC().Add(-collisionHistoryWindow)
	views, err := s.repos.Collisions(s.db).ListRecent(ctx, since, 50)
	if err != nil {
		return nil, fmt.Errorf("%w: list collisions: %v", common.ErrPersistence, err)
	}
	return lo.Map(views, func(v models.CollisionView, _ int) CollisionResponse {
		return CollisionResponse{
			Users:      []string{v.User1Name, v.User2Name},
			Query:      v.Query,
			Type:       v.Kind,
			OccurredAt: v.OccurredAt,
		}
	}), nil
}

func (s *Service) PendingGifts(ctx context.Context, userID string) ([]PendingGiftResponse, error) {
	pending, err := s.repos.GiftCapsules(s.db).ListPending(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list pending gifts: %v", common.ErrPersistence, err)
	}
	return lo.Map(pending, func(g models.PendingGift, _ int) PendingGiftResponse {
		return PendingGiftResponse{
			CapsuleID: g.CapsuleID,
			From:      g.FromUsername,
			Message:   g.Message,
			WrapStyle: g.WrapStyle,
			RevealAt:  g.RevealAt,
			CreatedAt: g.CreatedAt,
		}
	}), nil
}

func (s *Service) UploadURL(ctx context.Context, req *UploadURLRequest) (*UploadURLResponse, error) {
	key, url, err := s.presigner.PresignedPutURL(ctx, req.DiscoveryID)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}
	return &UploadURLResponse{Key: key, URL: url}, nil
}

func discoveryResponse(v models.DiscoveryView) DiscoveryResponse {
	return DiscoveryResponse{
		ID:           v.ID,
		Username:     v.Username,
		Query:        v.Query,
		URL:          v.URL,
		Title:        v.Title,
		Snippet:      v.Snippet,
		Engine:       v.Engine,
		DiscoveredAt: v.DiscoveredAt,
	}
}

func collectionResponse(c models.Collection) CollectionResponse {
	return CollectionResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Type:        c.Type,
		IsShared:    c.IsShared,
		ItemCount:   c.ItemCount,
		CreatedAt:   c.CreatedAt,
	}
}
