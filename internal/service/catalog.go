package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gosimple/slug"

	"github.com/Skotchmaster/teslix_shop/internal/models"
	"github.com/Skotchmaster/teslix_shop/internal/repo"
	"github.com/Skotchmaster/teslix_shop/internal/transport"
	"github.com/Skotchmaster/teslix_shop/pkg/events"
	"github.com/Skotchmaster/teslix_shop/pkg/logging"
)

type ProductIndex interface {
	Index(ctx context.Context, p models.Product) error
	Remove(ctx context.Context, id uint) error
	Search(ctx context.Context, q string, offset, limit int) (int64, []uint, error)
}

type CatalogService struct {
	Repo   *repo.GormRepo
	Index  ProductIndex
	Events events.Publisher
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	return p, translate(err)
}

func (s *CatalogService) GetProductBySlug(ctx context.Context, sl string) (*models.Product, error) {
	p, err := s.Repo.GetProductBySlug(ctx, sl)
	return p, translate(err)
}

func (s *CatalogService) GetProducts(ctx context.Context, offset, limit int) (int64, []models.Product, error) {
	return s.Repo.ListProducts(ctx, offset, limit)
}

// SearchProducts prefers the search index and falls back to the database
// when the index is absent or failing.
func (s *CatalogService) SearchProducts(ctx context.Context, q string, offset, limit int) (int64, []models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.search")

	q = strings.TrimSpace(q)
	if q == "" {
		return 0, []models.Product{}, nil
	}

	if s.Index != nil {
		total, ids, err := s.Index.Search(ctx, q, offset, limit)
		if err == nil {
			items, err := s.Repo.ProductsByIDs(ctx, ids)
			if err != nil {
				return 0, nil, err
			}
			return total, items, nil
		}
		l.Warn("search_index_error", "reason", "falling back to database", "error", err)
	}

	return s.Repo.SearchProducts(ctx, q, offset, limit)
}

func (s *CatalogService) CreateProduct(ctx context.Context, actor Principal, req transport.CreateProductRequest) (*models.Product, error) {
	if actor == nil || !actor.CanManageCatalog() {
		return nil, ErrUnauthorized
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}
	if req.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must be >= 0", ErrValidation)
	}
	if req.Stock < 0 {
		return nil, fmt.Errorf("%w: stock must be >= 0", ErrValidation)
	}

	prod := &models.Product{
		Name:        name,
		Slug:        slug.Make(name),
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Price:       req.Price.Round(2),
		Stock:       req.Stock,
	}
	if err := s.Repo.CreateProduct(ctx, prod); err != nil {
		return nil, translate(err)
	}

	s.reindex(ctx, prod)
	publish(ctx, s.Events, events.ProductTopic, key(prod.ID), map[string]any{
		"type":      "product_created",
		"productID": prod.ID,
		"name":      prod.Name,
		"price":     prod.Price.StringFixed(2),
	})
	return prod, nil
}

func (s *CatalogService) PatchProduct(ctx context.Context, actor Principal, id uint, req transport.PatchProductRequest) (*models.Product, error) {
	if actor == nil || !actor.CanManageCatalog() {
		return nil, ErrUnauthorized
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, fmt.Errorf("%w: name must not be empty", ErrValidation)
	}
	if req.Price != nil && req.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must be >= 0", ErrValidation)
	}
	if req.Stock != nil && *req.Stock < 0 {
		return nil, fmt.Errorf("%w: stock must be >= 0", ErrValidation)
	}

	prod, err := s.Repo.PatchProduct(ctx, id, func(p *models.Product) error {
		if req.Name != nil {
			p.Name = strings.TrimSpace(*req.Name)
			p.Slug = slug.Make(p.Name)
		}
		if req.Description != nil {
			p.Description = *req.Description
		}
		if req.ImageURL != nil {
			p.ImageURL = *req.ImageURL
		}
		if req.Price != nil {
			p.Price = req.Price.Round(2)
		}
		if req.Stock != nil {
			p.Stock = *req.Stock
		}
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}

	s.reindex(ctx, prod)
	publish(ctx, s.Events, events.ProductTopic, key(prod.ID), map[string]any{
		"type":      "product_updated",
		"productID": prod.ID,
		"name":      prod.Name,
		"price":     prod.Price.StringFixed(2),
	})
	return prod, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, actor Principal, id uint) error {
	if actor == nil || !actor.CanManageCatalog() {
		return ErrUnauthorized
	}
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		return translate(err)
	}

	if s.Index != nil {
		if err := s.Index.Remove(ctx, id); err != nil {
			logging.FromContext(ctx).Warn("search_index_error", "svc", "catalog.delete", "product_id", id, "error", err)
		}
	}
	publish(ctx, s.Events, events.ProductTopic, key(id), map[string]any{
		"type":      "product_deleted",
		"productID": id,
	})
	return nil
}

func (s *CatalogService) reindex(ctx context.Context, p *models.Product) {
	if s.Index == nil {
		return
	}
	if err := s.Index.Index(ctx, *p); err != nil {
		logging.FromContext(ctx).Warn("search_index_error", "svc", "catalog.index", "product_id", p.ID, "error", err)
	}
}

func key(id uint) string { return strconv.FormatUint(uint64(id), 10) }
