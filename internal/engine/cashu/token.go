package cashu

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/aeschylus/botwallets/internal/domain"
	"github.com/aeschylus/botwallets/internal/engine"
	"github.com/aeschylus/botwallets/internal/xerrors"
)

// V3 token serialization: "cashuA" + base64url(JSON). CBOR (cashuB) tokens
// are rejected rather than silently mis-parsed.
const tokenPrefixV3 = "cashuA"

type tokenEntry struct {
	Mint   string             `json:"mint"`
	Proofs []domain.ProofUnit `json:"proofs"`
}

type tokenV3 struct {
	Token []tokenEntry `json:"token"`
	Unit  string       `json:"unit,omitempty"`
	Memo  string       `json:"memo,omitempty"`
}

// EncodeToken serializes proof units into a V3 cashu token string.
func EncodeToken(mint string, proofs []domain.ProofUnit, unit string) (string, error) {
	t := tokenV3{
		Token: []tokenEntry{{Mint: mint, Proofs: proofs}},
		Unit:  unit,
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return tokenPrefixV3 + base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeToken parses a V3 cashu token string. Any malformed input yields
// an InvalidTokenError; nothing else is ever returned for bad tokens.
func DecodeToken(token string) (*engine.DecodedToken, error) {
	token = strings.TrimSpace(token)
	if !strings.HasPrefix(token, tokenPrefixV3) {
		if strings.HasPrefix(token, "cashu") {
			return nil, &xerrors.InvalidTokenError{Reason: "unsupported token version"}
		}
		return nil, &xerrors.InvalidTokenError{Reason: "missing cashu prefix"}
	}

	raw, err := decodeBase64URL(strings.TrimPrefix(token, tokenPrefixV3))
	if err != nil {
		return nil, &xerrors.InvalidTokenError{Reason: "invalid base64 payload"}
	}

	var t tokenV3
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, &xerrors.InvalidTokenError{Reason: "invalid token payload"}
	}
	if len(t.Token) == 0 || len(t.Token[0].Proofs) == 0 {
		return nil, &xerrors.InvalidTokenError{Reason: "token carries no proofs"}
	}
	for _, p := range t.Token[0].Proofs {
		if p.Amount <= 0 || p.Secret == "" || p.C == "" {
			return nil, &xerrors.InvalidTokenError{Reason: "token carries a malformed proof"}
		}
	}

	return &engine.DecodedToken{
		Mint:   t.Token[0].Mint,
		Unit:   t.Unit,
		Proofs: t.Token[0].Proofs,
	}, nil
}

// Encoders in the wild disagree on padding; accept both.
func decodeBase64URL(s string) ([]byte, error) {
	if raw, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return raw, nil
	}
	return base64.URLEncoding.DecodeString(s)
}
