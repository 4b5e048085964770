package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rl1809/catalog-orders/internal/core/cache"
	"github.com/rl1809/catalog-orders/internal/core/domain"
	"github.com/rl1809/catalog-orders/internal/port"
)

type CategoryService struct {
	db          port.DatabaseRepository
	cache       *cache.Layer
	invalidator *Invalidator
}

func NewCategoryService(db port.DatabaseRepository, layer *cache.Layer, invalidator *Invalidator) *CategoryService {
	return &CategoryService{db: db, cache: layer, invalidator: invalidator}
}

func (s *CategoryService) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	key := cache.CategoryKey(id)
	var cached domain.Category
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	c, err := s.db.Repositories().Categories.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, c, cache.EntityTTL)
	return c, nil
}

func (s *CategoryService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var cached []domain.Category
	if s.cache.Get(ctx, cache.CategoryListKey, &cached) {
		return cached, nil
	}

	categories, err := s.db.Repositories().Categories.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	s.cache.Set(ctx, cache.CategoryListKey, categories, cache.ListTTL)
	return categories, nil
}

func (s *CategoryService) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewFieldError("name", "must not be empty")
	}

	c := &domain.Category{Name: name}
	if err := s.db.Repositories().Categories.Insert(ctx, c); err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}
	s.invalidator.CategoriesChanged(ctx, c.ID)
	return c, nil
}

func (s *CategoryService) UpdateCategory(ctx context.Context, id int64, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewFieldError("name", "must not be empty")
	}

	var updated *domain.Category
	err := s.db.WithinTx(ctx, func(ctx context.Context, repos port.Repositories) error {
		c, err := repos.Categories.FindByID(ctx, id)
		if err != nil {
			return err
		}
		c.Name = name
		if err := repos.Categories.Update(ctx, c); err != nil {
			return fmt.Errorf("update category %d: %w", id, err)
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidator.CategoriesChanged(ctx, id)
	return updated, nil
}

func (s *CategoryService) DeleteCategory(ctx context.Context, id int64) error {
	err := s.db.WithinTx(ctx, func(ctx context.Context, repos port.Repositories) error {
		if _, err := repos.Categories.FindByID(ctx, id); err != nil {
			return err
		}
		if err := repos.Categories.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete category %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidator.CategoriesChanged(ctx, id)
	return nil
}
