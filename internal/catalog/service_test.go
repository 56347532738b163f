package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	pkgerrors "github.com/angelmondragon/rmjobsites-storefront/pkg/errors"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/logger"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/storefront"
)

type stubAPI struct {
	categoryCalls atomic.Int32
	categoriesErr error
	gate          chan struct{}
	searches      []string
	limits        []int
}

func (s *stubAPI) Categories(context.Context) ([]storefront.Category, error) {
	s.categoryCalls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	if s.categoriesErr != nil {
		return nil, s.categoriesErr
	}
	return []storefront.Category{{ID: "C1", Name: "Excavators"}, {ID: "C2", Name: "Lifts"}}, nil
}

func (s *stubAPI) Category(_ context.Context, id string) (*storefront.Category, error) {
	return &storefront.Category{ID: id}, nil
}

func (s *stubAPI) ProductsByCategory(context.Context, string) ([]storefront.Product, error) {
	return []storefront.Product{{ID: "P1"}}, nil
}

func (s *stubAPI) SearchProducts(_ context.Context, query string, limit int) ([]storefront.Product, error) {
	s.searches = append(s.searches, query)
	s.limits = append(s.limits, limit)
	return []storefront.Product{{ID: "P1", Name: query}}, nil
}

func (s *stubAPI) Product(_ context.Context, id string) (*storefront.Product, error) {
	return &storefront.Product{ID: id}, nil
}

func newTestService(t *testing.T, api API) *Service {
	t.Helper()
	svc, err := NewService(api, logger.Nop())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestCategoriesLoadedOnce(t *testing.T) {
	t.Parallel()

	api := &stubAPI{gate: make(chan struct{})}
	svc := newTestService(t, api)

	if state := svc.State(); !state.Loading {
		t.Fatal("expected loading before first load")
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cats, err := svc.Categories(context.Background())
			if err != nil || len(cats) != 2 {
				t.Errorf("unexpected result %v %v", cats, err)
			}
		}()
	}
	close(api.gate)
	wg.Wait()

	if _, err := svc.Categories(context.Background()); err != nil {
		t.Fatalf("cached load: %v", err)
	}
	if got := api.categoryCalls.Load(); got != 1 {
		t.Fatalf("expected one upstream call, got %d", got)
	}
	state := svc.State()
	if state.Loading || state.Error != "" || len(state.Categories) != 2 {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestCategoriesFailureIsRetried(t *testing.T) {
	t.Parallel()

	api := &stubAPI{categoriesErr: errors.New("timeout")}
	svc := newTestService(t, api)

	_, err := svc.Categories(context.Background())
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if state := svc.State(); state.Error != "Failed to load categories" || state.Loading {
		t.Fatalf("unexpected state %+v", state)
	}

	api.categoriesErr = nil
	if _, err := svc.Categories(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if state := svc.State(); state.Error != "" {
		t.Fatalf("error should clear after success, got %q", state.Error)
	}
}

func TestLookupsRequireIDs(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubAPI{})
	ctx := context.Background()
	if _, err := svc.Category(ctx, " "); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Product(ctx, ""); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.ProductsByCategory(ctx, ""); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	product, err := svc.Product(ctx, " P9 ")
	if err != nil || product.ID != "P9" {
		t.Fatalf("expected trimmed id, got %+v %v", product, err)
	}
}

func TestSearchBlankQuerySkipsRequest(t *testing.T) {
	t.Parallel()

	api := &stubAPI{}
	svc := newTestService(t, api)
	results, err := svc.Search(context.Background(), "   ", 0)
	if err != nil || len(results) != 0 {
		t.Fatalf("expected empty results, got %v %v", results, err)
	}
	if len(api.searches) != 0 {
		t.Fatal("blank query must not hit the api")
	}
	if _, err := svc.Search(context.Background(), " lift ", 0); err != nil {
		t.Fatalf("search: %v", err)
	}
	if api.searches[0] != "lift" || api.limits[0] != DefaultSearchLimit {
		t.Fatalf("unexpected search %v %v", api.searches, api.limits)
	}
}
