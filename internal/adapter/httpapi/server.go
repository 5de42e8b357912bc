package httpapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/domain"
	"github.com/example/storefront/internal/session"
	"github.com/example/storefront/internal/ui"
	"github.com/example/storefront/internal/usecase"
)

// Options — настройки cookie сессии и потока событий.
type Options struct {
	CookieName   string
	CookieMaxAge time.Duration
	SecureCookie bool
	// Heartbeat — период комментариев-пингов в SSE-потоке.
	Heartbeat time.Duration
}

func (o *Options) applyDefaults() {
	if o.CookieName == "" {
		o.CookieName = "sf_session"
	}
	if o.CookieMaxAge == 0 {
		o.CookieMaxAge = 365 * 24 * time.Hour
	}
	if o.Heartbeat == 0 {
		o.Heartbeat = 15 * time.Second
	}
}

type Server struct {
	Router   *mux.Router
	Sessions *session.Registry
	Logger   *zap.Logger

	UCProducts usecase.ListProducts
	UCProduct  usecase.GetProduct
	UCRegions  usecase.ListRegions

	regions  ui.RegionLister
	opts     Options
	validate *validator.Validate
}

func NewServer(client domain.CommerceClient, sessions *session.Registry, opts Options, logger *zap.Logger) *Server {
	opts.applyDefaults()
	s := &Server{
		Router:     mux.NewRouter(),
		Sessions:   sessions,
		Logger:     logger,
		UCProducts: usecase.ListProducts{Client: client},
		UCProduct:  usecase.GetProduct{Client: client},
		UCRegions:  usecase.ListRegions{Client: client},
		regions:    client,
		opts:       opts,
		validate:   newValidator(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.Router

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/cart", s.handleGetCart).Methods(http.MethodGet)
	api.HandleFunc("/cart/count", s.handleCartCount).Methods(http.MethodGet)
	api.HandleFunc("/cart/events", s.handleEvents).Methods(http.MethodGet)
	api.HandleFunc("/cart/items", s.handleAddItem).Methods(http.MethodPost)
	api.HandleFunc("/cart/items/{line}", s.handleUpdateItem).Methods(http.MethodPatch)
	api.HandleFunc("/cart/items/{line}", s.handleRemoveItem).Methods(http.MethodDelete)
	api.HandleFunc("/products", s.handleListProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", s.handleGetProduct).Methods(http.MethodGet)
	api.HandleFunc("/regions", s.handleListRegions).Methods(http.MethodGet)

	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(ui.Static()))))

	r.HandleFunc("/region", s.handleChangeRegion).Methods(http.MethodPost)
	r.HandleFunc("/{region}", s.handleRegionHome).Methods(http.MethodGet)
	r.HandleFunc("/{region}/", s.handleRegionHome).Methods(http.MethodGet)
	r.HandleFunc("/{region}/products/{id}", s.handleProductPage).Methods(http.MethodGet)
	r.HandleFunc("/{region}/products/{id}/{handle}", s.handleProductPage).Methods(http.MethodGet)
	r.HandleFunc("/{region}/cart", s.handleCartPage).Methods(http.MethodGet)
	r.HandleFunc("/{region}/cart/items", s.handleAddItemForm).Methods(http.MethodPost)
	r.HandleFunc("/{region}/cart/items/{line}/quantity", s.handleQuantityForm).Methods(http.MethodPost)
	r.HandleFunc("/{region}/cart/items/{line}/delete", s.handleRemoveForm).Methods(http.MethodPost)
	r.HandleFunc("/{region}/cart/checkout", s.handleCheckout).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(s.handleUnrouted)
}

// Handler — роутер, обёрнутый в логирование запросов и middleware сессии.
func (s *Server) Handler() http.Handler {
	return s.withRequestLog(s.withSession(s.Router))
}
