package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/apperr"
	"github.com/vasiliy-maslov/storefront/internal/realtime"
	"github.com/vasiliy-maslov/storefront/internal/session"
)

type Service interface {
	CreateProduct(ctx context.Context, in ProductInput) (*Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, patch ProductPatch) (*Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductView, error)
	ListProducts(ctx context.Context, filter Filter) ([]ProductView, error)
	ProductsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Product, error)
	LowStock(ctx context.Context, threshold int) ([]Product, error)
	Subscribe(ctx context.Context, filter Filter, onUpdate func([]ProductView), onError func(error)) realtime.Unsubscribe

	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, name string) (*Category, error)
	RenameCategory(ctx context.Context, id uuid.UUID, name string) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo     Repository
	cache    Cache
	notifier realtime.Notifier
	feed     realtime.Feed
}

func NewService(repo Repository, cache Cache, notifier realtime.Notifier, feed realtime.Feed) Service {
	return &service{repo: repo, cache: cache, notifier: notifier, feed: feed}
}

func validateProduct(p *Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperr.Invalid("name", "is required")
	}
	if !p.Price.IsPositive() {
		return apperr.Invalid("price", "must be greater than zero, got %s", p.Price)
	}
	if p.Stock < 0 {
		return apperr.Invalid("stock", "cannot be negative, got %d", p.Stock)
	}
	return nil
}

func cleanImages(images []string) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		if img = strings.TrimSpace(img); img != "" {
			out = append(out, img)
		}
	}
	return out
}

func (s *service) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	if _, err := session.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	p := &Product{
		Name:        strings.TrimSpace(in.Name),
		Price:       in.Price,
		Stock:       in.Stock,
		CategoryID:  in.CategoryID,
		Images:      cleanImages(in.Images),
		Description: in.Description,
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}

	if err := s.repo.CreateProduct(ctx, p); err != nil {
		log.Error().Err(err).Msg("service: failed to create product in repository")
		return nil, fmt.Errorf("service: failed to create product: %w", err)
	}

	log.Info().Stringer("product_id", p.ID).Str("name", p.Name).Msg("service: product created")
	s.notify(ctx)
	return p, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, patch ProductPatch) (*Product, error) {
	if _, err := session.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.CategoryID != nil {
		p.CategoryID = *patch.CategoryID
	}
	if patch.Images != nil {
		p.Images = cleanImages(patch.Images)
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to update product in repository")
		return nil, fmt.Errorf("service: failed to update product: %w", err)
	}

	s.evict(ctx, id)
	s.notify(ctx)
	return p, nil
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if _, err := session.RequireAdmin(ctx); err != nil {
		return err
	}

	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return err
		}
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to delete product in repository")
		return fmt.Errorf("service: failed to delete product: %w", err)
	}

	log.Info().Stringer("product_id", id).Msg("service: product deleted")
	s.evict(ctx, id)
	s.notify(ctx)
	return nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductView, error) {
	p, err := s.cache.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			log.Warn().Err(err).Stringer("product_id", id).Msg("service: product cache unavailable")
		}

		p, err = s.repo.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, p); err != nil {
			log.Warn().Err(err).Stringer("product_id", id).Msg("service: failed to cache product")
		}
	}

	categories, err := s.categoryNames(ctx)
	if err != nil {
		return nil, err
	}
	view := resolve(*p, categories)
	return &view, nil
}

func (s *service) ListProducts(ctx context.Context, filter Filter) ([]ProductView, error) {
	products, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list products")
		return nil, fmt.Errorf("service: failed to list products: %w", err)
	}

	categories, err := s.categoryNames(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, resolve(p, categories))
	}
	return views, nil
}

func (s *service) ProductsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Product, error) {
	products, err := s.repo.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load products: %w", err)
	}

	byID := make(map[uuid.UUID]Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return byID, nil
}

func (s *service) LowStock(ctx context.Context, threshold int) ([]Product, error) {
	return s.repo.LowStock(ctx, threshold)
}

func (s *service) Subscribe(ctx context.Context, filter Filter, onUpdate func([]ProductView), onError func(error)) realtime.Unsubscribe {
	return realtime.Watch(s.feed, []string{realtime.TopicProducts}, func() {
		views, err := s.ListProducts(ctx, filter)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onUpdate(views)
	}, onError)
}

func (s *service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *service) CreateCategory(ctx context.Context, name string) (*Category, error) {
	if _, err := session.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Invalid("name", "is required")
	}

	c := &Category{Name: name}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("service: failed to create category: %w", err)
	}
	s.notify(ctx)
	return c, nil
}

func (s *service) RenameCategory(ctx context.Context, id uuid.UUID, name string) error {
	if _, err := session.RequireAdmin(ctx); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return apperr.Invalid("name", "is required")
	}

	if err := s.repo.RenameCategory(ctx, id, name); err != nil {
		return err
	}
	s.notify(ctx)
	return nil
}

func (s *service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if _, err := session.RequireAdmin(ctx); err != nil {
		return err
	}

	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	log.Info().Stringer("category_id", id).Msg("service: category deleted, products keep their reference")
	s.notify(ctx)
	return nil
}

func (s *service) categoryNames(ctx context.Context) (map[uuid.UUID]string, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load categories: %w", err)
	}
	names := make(map[uuid.UUID]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names, nil
}

func resolve(p Product, categories map[uuid.UUID]string) ProductView {
	view := ProductView{Product: p, CategoryName: UncategorizedName}
	if p.CategoryID.Valid {
		if name, ok := categories[p.CategoryID.UUID]; ok {
			view.CategoryName = name
		}
	}
	return view
}

func (s *service) evict(ctx context.Context, id uuid.UUID) {
	if err := s.cache.Delete(ctx, id); err != nil {
		log.Warn().Err(err).Stringer("product_id", id).Msg("service: failed to evict cached product")
	}
}

func (s *service) notify(ctx context.Context) {
	if err := s.notifier.Notify(ctx, realtime.TopicProducts); err != nil {
		log.Warn().Err(err).Msg("service: failed to announce catalog change")
	}
}
