package service

import (
	"context"
	"log"
	"strings"
	"time"

	"butikpos/backend/internal/cache"
	"butikpos/backend/internal/domain"
	"butikpos/backend/internal/store"
	"butikpos/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo    store.Repository
	carts   cache.SessionCartCache
	cartTTL time.Duration
}

func New(repo store.Repository, carts cache.SessionCartCache, cartTTL time.Duration) *Service {
	if carts == nil {
		carts = cache.NoopSessionCartCache{}
	}
	if cartTTL < time.Minute {
		cartTTL = 12 * time.Hour
	}

	return &Service{
		repo:    repo,
		carts:   carts,
		cartTTL: cartTTL,
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Product{}, store.ErrInvalid
	}
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Product{}, store.ErrInvalid
	}
	if req.PurchasePriceCents < 0 || req.SalePriceCents < 0 {
		return domain.Product{}, store.ErrInvalid
	}

	product := domain.Product{
		ID:                 xid.New("prd"),
		Name:               req.Name,
		PurchasePriceCents: req.PurchasePriceCents,
		SalePriceCents:     req.SalePriceCents,
		Variants:           req.Variants,
		Active:             true,
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	s.logAction(ctx, "product_create", created.ID, created.Name)
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Product{}, store.ErrInvalid
	}

	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalid
		}
		updated.Name = name
	}
	if req.PurchasePriceCents != nil {
		if *req.PurchasePriceCents < 0 {
			return domain.Product{}, store.ErrInvalid
		}
		updated.PurchasePriceCents = *req.PurchasePriceCents
	}
	if req.SalePriceCents != nil {
		if *req.SalePriceCents < 0 {
			return domain.Product{}, store.ErrInvalid
		}
		updated.SalePriceCents = *req.SalePriceCents
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}
	s.logAction(ctx, "product_update", saved.ID, saved.Name)
	return *saved, nil
}

func (s *Service) AdjustVariants(ctx context.Context, adjustments []domain.VariantAdjustment) ([]domain.VariantQuantity, error) {
	if len(adjustments) == 0 {
		return nil, store.ErrInvalid
	}
	for _, adj := range adjustments {
		if adj.ProductID == "" || strings.TrimSpace(adj.Color) == "" || strings.TrimSpace(adj.Size) == "" {
			return nil, store.ErrInvalid
		}
	}
	return s.repo.AdjustVariants(ctx, adjustments)
}

func (s *Service) logAction(ctx context.Context, action string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Name: "system"}
	}
	log.Printf("[service] %s %s by=%s detail=%s", action, entityID, actor.Name, detail)
}

// parseDate accepts YYYY-MM-DD and returns midnight UTC.
func parseDate(value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, store.ErrInvalid
	}
	return t.UTC(), nil
}

// parseWindow turns optional YYYY-MM-DD bounds into a half-open UTC
// interval. An empty from means the beginning of time; an empty to
// means "through today".
func parseWindow(fromStr string, toStr string) (time.Time, time.Time, error) {
	var from time.Time
	if strings.TrimSpace(fromStr) != "" {
		parsed, err := parseDate(fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}

	to := time.Now().UTC().Add(24 * time.Hour)
	if strings.TrimSpace(toStr) != "" {
		parsed, err := parseDate(toStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed.Add(24 * time.Hour)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, store.ErrInvalid
	}
	return from, to, nil
}
