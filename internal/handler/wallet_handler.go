package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aeschylus/botwallets/internal/domain"
	"github.com/aeschylus/botwallets/internal/response"
	"github.com/aeschylus/botwallets/internal/usecase/wallet"
	"github.com/aeschylus/botwallets/internal/xerrors"
)

// Deps carries what handlers need to resolve a wallet orchestrator.
type Deps struct {
	Registry *wallet.Registry
	MintURL  string
	Unit     string
}

func (d *Deps) wallet(r *http.Request) (*wallet.Service, error) {
	walletID := chi.URLParam(r, "walletID")
	if walletID == "" {
		return nil, xerrors.ErrInvalidRequest
	}
	return d.Registry.Wallet(r.Context(), walletID, d.MintURL, d.Unit)
}

func writeError(w http.ResponseWriter, err error) {
	var insufficient *xerrors.InsufficientBalanceError
	var invalidToken *xerrors.InvalidTokenError
	var unreachable *xerrors.EngineUnreachableError

	switch {
	case errors.As(err, &insufficient):
		response.Error(w, http.StatusBadRequest, response.CodeInsufficientFunds, insufficient.Error())
	case errors.As(err, &invalidToken):
		response.Error(w, http.StatusBadRequest, response.CodeInvalidToken, invalidToken.Error())
	case errors.Is(err, xerrors.ErrNotFound):
		response.Error(w, http.StatusNotFound, response.CodeNotFound, "not found")
	case errors.Is(err, xerrors.ErrInvalidRequest):
		response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "invalid request")
	case errors.As(err, &unreachable):
		response.Error(w, http.StatusBadGateway, response.CodeMintUnreachable, unreachable.Error())
	default:
		response.Error(w, http.StatusInternalServerError, response.CodeInternal, err.Error())
	}
}

func BalanceHandler(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, err := deps.wallet(r)
		if err != nil {
			writeError(w, err)
			return
		}
		balance, err := svc.Balance(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, http.StatusOK, map[string]any{"balance": balance})
	}
}

func InfoHandler(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, err := deps.wallet(r)
		if err != nil {
			writeError(w, err)
			return
		}
		info, err := svc.Info(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, http.StatusOK, info)
	}
}

func TransactionsHandler(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, err := deps.wallet(r)
		if err != nil {
			writeError(w, err)
			return
		}

		query := domain.TransactionQuery{
			Type:   domain.TxType(r.URL.Query().Get("type")),
			Status: domain.TxStatus(r.URL.Query().Get("status")),
		}
		if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
			query.Limit = limit
		}
		if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
			query.Offset = offset
		}

		txs, err := svc.Transactions(r.Context(), query)
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, http.StatusOK, map[string]any{"transactions": txs})
	}
}

func SendHandler(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Amount int64        `json:"amount"`
			Memo   *domain.Memo `json:"memo,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Amount <= 0 {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "amount must be a positive integer")
			return
		}

		svc, err := deps.wallet(r)
		if err != nil {
			writeError(w, err)
			return
		}
		token, err := svc.Send(r.Context(), req.Amount, req.Memo)
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, http.StatusOK, map[string]any{"token": token})
	}
}

func ReceiveHandler(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Token string       `json:"token"`
			Memo  *domain.Memo `json:"memo,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "token is required")
			return
		}

		svc, err := deps.wallet(r)
		if err != nil {
			writeError(w, err)
			return
		}
		amount, err := svc.Receive(r.Context(), req.Token, req.Memo)
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, http.StatusOK, map[string]any{"amount": amount})
	}
}

func MintInvoiceHandler(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Amount int64 `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Amount <= 0 {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "amount must be a positive integer")
			return
		}

		svc, err := deps.wallet(r)
		if err != nil {
			writeError(w, err)
			return
		}
		invoice, err := svc.CreateMintInvoice(r.Context(), req.Amount)
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, http.StatusOK, invoice)
	}
}

func ClaimHandler(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quoteID := chi.URLParam(r, "quoteID")

		svc, err := deps.wallet(r)
		if err != nil {
			writeError(w, err)
			return
		}
		minted, claimed, err := svc.CheckMintQuote(r.Context(), quoteID)
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, http.StatusOK, map[string]any{
			"claimed": claimed,
			"amount":  minted,
		})
	}
}

func MeltHandler(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Invoice string       `json:"invoice"`
			Memo    *domain.Memo `json:"memo,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Invoice == "" {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "invoice is required")
			return
		}

		svc, err := deps.wallet(r)
		if err != nil {
			writeError(w, err)
			return
		}
		result, err := svc.PayInvoice(r.Context(), req.Invoice, req.Memo)
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, http.StatusOK, result)
	}
}
