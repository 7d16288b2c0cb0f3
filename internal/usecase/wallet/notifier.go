package wallet

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WSMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Notifier fans wallet events out to websocket subscribers, keyed by wallet
// id. Writes to a dead connection drop it.
type Notifier struct {
	logger  *zap.Logger
	mu      sync.Mutex
	clients map[string]map[*websocket.Conn]bool
}

func NewNotifier(logger *zap.Logger) *Notifier {
	return &Notifier{
		logger:  logger,
		clients: make(map[string]map[*websocket.Conn]bool),
	}
}

func (n *Notifier) RegisterConnection(walletID string, conn *websocket.Conn) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.clients[walletID] == nil {
		n.clients[walletID] = make(map[*websocket.Conn]bool)
	}
	n.clients[walletID][conn] = true
}

func (n *Notifier) UnregisterConnection(walletID string, conn *websocket.Conn) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if conns, ok := n.clients[walletID]; ok {
		delete(conns, conn)
		conn.Close()
		if len(conns) == 0 {
			delete(n.clients, walletID)
		}
	}
}

// NotifyTransaction announces a resolved transaction and the wallet's
// post-operation balance.
func (n *Notifier) NotifyTransaction(walletID, txID string, balance int64) {
	n.broadcast(walletID, WSMessage{
		Type: "transaction_update",
		Data: map[string]any{
			"wallet_id": walletID,
			"tx_id":     txID,
			"balance":   balance,
		},
	})
}

// NotifyBalance announces the current balance, used for initial snapshots.
func (n *Notifier) NotifyBalance(walletID string, balance int64) {
	n.broadcast(walletID, WSMessage{
		Type: "balance",
		Data: map[string]any{
			"wallet_id": walletID,
			"balance":   balance,
		},
	})
}

func (n *Notifier) broadcast(walletID string, msg WSMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()

	payload, _ := json.Marshal(msg)
	for conn := range n.clients[walletID] {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			n.logger.Warn("dropping websocket subscriber",
				zap.String("wallet_id", walletID),
				zap.Error(err))
			conn.Close()
			delete(n.clients[walletID], conn)
		}
	}
}
