package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"invoice-portal/internal/usecase"
)

// Server exposes the merchant and customer HTTP routes.
type Server struct {
	accounts usecase.AccountUseCase
	links    usecase.AccessLinkUseCase
	invoices usecase.InvoiceUseCase
	auth     *AuthManager
	timeout  time.Duration
	log      *zerolog.Logger
}

func NewServer(
	accounts usecase.AccountUseCase,
	links usecase.AccessLinkUseCase,
	invoices usecase.InvoiceUseCase,
	auth *AuthManager,
	timeout time.Duration,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "HTTPServer").Logger()
	return &Server{
		accounts: accounts,
		links:    links,
		invoices: invoices,
		auth:     auth,
		timeout:  timeout,
		log:      &l,
	}
}

// Router builds the handler tree. Merchant routes need a bearer token; customer
// routes are authorized by the access-link token in the path.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(
		Recover(s.log),
		TraceID(),
		RequestLog(s.log),
		Timeout(s.timeout),
		Trusted(),
	)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// merchant
		r.Group(func(r chi.Router) {
			r.Use(s.auth.Middleware)
			r.Post("/accounts", s.linkAccount)
			r.Get("/accounts", s.listAccounts)
			r.Delete("/accounts/{accountID}", s.revokeAccount)
			r.Post("/links", s.createLink)
		})

		// customer
		r.Post("/merchants/{userID}/links", s.requestLink)
		r.Get("/invoices/{token}", s.getInvoices)
		r.Get("/invoices/{token}/documents/{chargeID}", s.getDocument)
	})
	return r
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
