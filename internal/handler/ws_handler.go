package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WalletWSHandler streams transaction/balance events for one wallet. The
// client may send {"action": "get_balance"} to request a fresh snapshot.
func WalletWSHandler(deps *Deps, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		walletID := chi.URLParam(r, "walletID")
		svc, err := deps.Registry.Wallet(r.Context(), walletID, deps.MintURL, deps.Unit)
		if err != nil {
			writeError(w, err)
			return
		}

		// Upgrade writes its own HTTP error on failure; nothing more to send.
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed",
				zap.String("wallet_id", walletID),
				zap.Error(err))
			return
		}

		notifier := deps.Registry.Notifier()
		notifier.RegisterConnection(walletID, conn)
		defer notifier.UnregisterConnection(walletID, conn)

		if balance, err := svc.Balance(r.Context()); err == nil {
			notifier.NotifyBalance(walletID, balance)
		} else {
			logger.Warn("failed to load initial balance", zap.String("wallet_id", walletID), zap.Error(err))
		}

		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				logger.Debug("websocket client disconnected",
					zap.String("wallet_id", walletID),
					zap.Error(err))
				return
			}
			if mt != websocket.TextMessage {
				continue
			}

			var req struct {
				Action string `json:"action"`
			}
			if err := json.Unmarshal(msg, &req); err == nil && req.Action == "get_balance" {
				if balance, err := svc.Balance(r.Context()); err == nil {
					notifier.NotifyBalance(walletID, balance)
				}
			}
		}
	}
}
