package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/rmjobsites-storefront/api/controllers"
	"github.com/angelmondragon/rmjobsites-storefront/api/middleware"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/config"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/kv"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/logger"
)

// Deps is everything the router hands to controllers.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// Ready lists the dependencies /health/ready pings, by name.
	Ready map[string]kv.Pinger

	Sessions   middleware.SessionReader
	Auth       controllers.AuthService
	Catalog    controllers.CatalogService
	Search     controllers.Debouncer
	Cart       controllers.CartService
	Badge      controllers.BadgeCounter
	Checkout   controllers.CheckoutService
	Containers controllers.CardContainers
	Account    controllers.AccountService
	Requests   controllers.RequestsService
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Session(d.Sessions),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg.App.Env))
		r.Get("/ready", controllers.HealthReady(cfg.App.Env, logg, d.Ready))
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", controllers.AuthLogin(d.Auth, logg))
		r.Post("/register", controllers.AuthRegister(d.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(d.Auth, logg))
		r.Get("/me", controllers.AuthMe(logg))
	})

	r.Route("/categories", func(r chi.Router) {
		r.Get("/", controllers.CategoriesList(d.Catalog, logg))
		r.Get("/{categoryId}", controllers.CategoryDetail(d.Catalog, logg))
		r.Get("/{categoryId}/products", controllers.CategoryProducts(d.Catalog, logg))
	})
	r.Route("/products", func(r chi.Router) {
		r.Get("/", controllers.ProductSearch(d.Catalog, logg))
		r.Get("/{productId}", controllers.ProductDetail(d.Catalog, logg))
	})
	r.Route("/search", func(r chi.Router) {
		r.Get("/", controllers.SearchResults(d.Search, logg))
		r.Put("/", controllers.SearchInput(d.Search, logg))
	})

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", controllers.CartFetch(d.Cart, d.Badge, logg))
		r.Delete("/", controllers.CartClear(d.Cart, logg))
		r.Post("/items", controllers.CartAddItem(d.Cart, d.Catalog, d.Badge, logg))
		r.Patch("/items/{variationId}", controllers.CartUpdateQuantity(d.Cart, d.Badge, logg))
		r.Delete("/items/{variationId}", controllers.CartRemoveItem(d.Cart, d.Badge, logg))
	})

	r.Route("/checkout", func(r chi.Router) {
		r.Post("/", controllers.CheckoutEnter(d.Checkout, logg))
		r.Get("/", controllers.CheckoutView(d.Checkout, logg))
		r.Delete("/", controllers.CheckoutExit(d.Checkout))
		r.Put("/card", controllers.CheckoutFillCard(d.Checkout, d.Containers, cfg.Checkout.CardContainerID, logg))
		r.Post("/pricing", controllers.CheckoutRetryPricing(d.Checkout, logg))
		r.Post("/submit", controllers.CheckoutSubmit(d.Checkout, logg))
	})
	r.Get("/orders/confirmation", controllers.OrderConfirmation(d.Checkout, logg))

	r.Post("/service-requests", controllers.ServiceRequestCreate(d.Requests, logg))
	r.Post("/rental-requests", controllers.RentalRequestCreate(d.Requests, logg))

	r.Route("/account", func(r chi.Router) {
		r.Use(middleware.RequireUser(logg))
		r.Get("/", controllers.AccountProfile(d.Account, logg))
		r.Patch("/", controllers.AccountUpdate(d.Account, logg))
		r.Get("/orders", controllers.AccountOrders(d.Account, logg))
		r.Get("/cards", controllers.AccountCards(d.Account, logg))
		r.Delete("/cards/{cardId}", controllers.AccountDeleteCard(d.Account, logg))
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdmin(logg))
		r.Get("/service-requests", controllers.AdminServiceRequests(d.Requests, logg))
		r.Get("/rental-requests", controllers.AdminRentalRequests(d.Requests, logg))
	})

	return r
}
