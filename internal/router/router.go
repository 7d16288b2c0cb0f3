package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/aeschylus/botwallets/internal/handler"
)

func New(deps *handler.Deps, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/wallets/{walletID}", func(r chi.Router) {
			r.Get("/balance", handler.BalanceHandler(deps))
			r.Get("/info", handler.InfoHandler(deps))
			r.Get("/transactions", handler.TransactionsHandler(deps))
			r.Post("/send", handler.SendHandler(deps))
			r.Post("/receive", handler.ReceiveHandler(deps))
			r.Post("/mint", handler.MintInvoiceHandler(deps))
			r.Post("/mint/{quoteID}/claim", handler.ClaimHandler(deps))
			r.Post("/melt", handler.MeltHandler(deps))
		})
	})

	r.Get("/ws/wallets/{walletID}", handler.WalletWSHandler(deps, logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
