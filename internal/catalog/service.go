package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	pkgerrors "github.com/angelmondragon/rmjobsites-storefront/pkg/errors"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/logger"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/storefront"
)

const categoriesFailure = "Failed to load categories"

// API is the catalog slice of the storefront REST client.
type API interface {
	Categories(ctx context.Context) ([]storefront.Category, error)
	Category(ctx context.Context, categoryID string) (*storefront.Category, error)
	ProductsByCategory(ctx context.Context, categoryID string) ([]storefront.Product, error)
	SearchProducts(ctx context.Context, query string, limit int) ([]storefront.Product, error)
	Product(ctx context.Context, productID string) (*storefront.Product, error)
}

// CategoriesState mirrors what the navigation renders.
type CategoriesState struct {
	Categories []storefront.Category `json:"categories"`
	Loading    bool                  `json:"loading"`
	Error      string                `json:"error,omitempty"`
}

// Service loads categories once per process and proxies product lookups.
type Service struct {
	api    API
	logger *logger.Logger
	group  singleflight.Group

	mu         sync.RWMutex
	categories []storefront.Category
	loaded     bool
	loading    bool
	loadErr    string
}

// NewService wires the catalog service.
func NewService(api API, logg *logger.Logger) (*Service, error) {
	if api == nil {
		return nil, errors.New("catalog api required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{api: api, logger: logg}, nil
}

// Categories returns the cached categories, loading them on first use. Concurrent
// first callers share one request; a failed load is retried on the next call.
func (s *Service) Categories(ctx context.Context) ([]storefront.Category, error) {
	s.mu.RLock()
	if s.loaded {
		out := append([]storefront.Category(nil), s.categories...)
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	v, err, _ := s.group.Do("categories", func() (any, error) {
		s.mu.Lock()
		if s.loaded {
			cached := s.categories
			s.mu.Unlock()
			return cached, nil
		}
		s.loading = true
		s.mu.Unlock()

		categories, err := s.api.Categories(ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.loading = false
		if err != nil {
			s.loadErr = categoriesFailure
			return nil, err
		}
		if categories == nil {
			categories = []storefront.Category{}
		}
		s.categories = categories
		s.loaded = true
		s.loadErr = ""
		return categories, nil
	})
	if err != nil {
		s.logger.Error(ctx, "catalog.categories_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, categoriesFailure)
	}
	return append([]storefront.Category(nil), v.([]storefront.Category)...), nil
}

// State reports the categories load state without triggering a load.
func (s *Service) State() CategoriesState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CategoriesState{
		Categories: append([]storefront.Category{}, s.categories...),
		Loading:    s.loading || (!s.loaded && s.loadErr == ""),
		Error:      s.loadErr,
	}
}

// Category fetches one category.
func (s *Service) Category(ctx context.Context, categoryID string) (*storefront.Category, error) {
	categoryID, err := requireID(categoryID, "category id")
	if err != nil {
		return nil, err
	}
	return s.api.Category(ctx, categoryID)
}

// ProductsByCategory lists the products of a category.
func (s *Service) ProductsByCategory(ctx context.Context, categoryID string) ([]storefront.Product, error) {
	categoryID, err := requireID(categoryID, "category id")
	if err != nil {
		return nil, err
	}
	return s.api.ProductsByCategory(ctx, categoryID)
}

// Product fetches one product with its variations.
func (s *Service) Product(ctx context.Context, productID string) (*storefront.Product, error) {
	productID, err := requireID(productID, "product id")
	if err != nil {
		return nil, err
	}
	return s.api.Product(ctx, productID)
}

// Search runs a product search. A blank query returns no results without a request.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]storefront.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []storefront.Product{}, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return s.api.SearchProducts(ctx, query, limit)
}

func requireID(id, name string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	return id, nil
}
