package cashu

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeschylus/botwallets/internal/domain"
	"github.com/aeschylus/botwallets/internal/xerrors"
)

func sampleProofs() []domain.ProofUnit {
	return []domain.ProofUnit{
		{KeysetID: "009a1f293253e41e", Amount: 2, Secret: "407915bc212be61a", C: "02bc9097997d81af"},
		{KeysetID: "009a1f293253e41e", Amount: 8, Secret: "fe15109314e61d71", C: "029e8e5050b890a7"},
	}
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := EncodeToken("https://mint.example.com", sampleProofs(), "sat")
	require.NoError(t, err)
	require.True(t, len(token) > len(tokenPrefixV3))
	assert.Equal(t, tokenPrefixV3, token[:len(tokenPrefixV3)])

	decoded, err := DecodeToken(token)
	require.NoError(t, err)
	assert.Equal(t, "https://mint.example.com", decoded.Mint)
	assert.Equal(t, "sat", decoded.Unit)
	assert.Equal(t, sampleProofs(), decoded.Proofs)
	assert.Equal(t, int64(10), domain.SumUnits(decoded.Proofs))
}

func TestDecodeTokenAcceptsPaddedBase64(t *testing.T) {
	raw, err := json.Marshal(tokenV3{
		Token: []tokenEntry{{Mint: "https://mint.example.com", Proofs: sampleProofs()}},
		Unit:  "sat",
	})
	require.NoError(t, err)

	padded := tokenPrefixV3 + base64.URLEncoding.EncodeToString(raw)
	decoded, err := DecodeToken(padded)
	require.NoError(t, err)
	assert.Equal(t, sampleProofs(), decoded.Proofs)
}

func TestDecodeTokenTrimsWhitespace(t *testing.T) {
	token, err := EncodeToken("https://mint.example.com", sampleProofs(), "sat")
	require.NoError(t, err)

	decoded, err := DecodeToken("  " + token + "\n")
	require.NoError(t, err)
	assert.Equal(t, "https://mint.example.com", decoded.Mint)
}

func TestDecodeTokenMalformed(t *testing.T) {
	cases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"no prefix", "hello world"},
		{"wrong version", "cashuB" + base64.RawURLEncoding.EncodeToString([]byte("{}"))},
		{"bad base64", tokenPrefixV3 + "!!!not-base64!!!"},
		{"bad json", tokenPrefixV3 + base64.RawURLEncoding.EncodeToString([]byte("not json"))},
		{"no proofs", mustEncodeRaw(t, tokenV3{Token: []tokenEntry{{Mint: "m"}}})},
		{"empty token array", mustEncodeRaw(t, tokenV3{})},
		{"zero amount proof", mustEncodeRaw(t, tokenV3{Token: []tokenEntry{{
			Mint:   "m",
			Proofs: []domain.ProofUnit{{KeysetID: "k", Amount: 0, Secret: "s", C: "c"}},
		}}})},
		{"missing secret", mustEncodeRaw(t, tokenV3{Token: []tokenEntry{{
			Mint:   "m",
			Proofs: []domain.ProofUnit{{KeysetID: "k", Amount: 4, C: "c"}},
		}}})},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeToken(tc.token)
			var invalid *xerrors.InvalidTokenError
			require.ErrorAs(t, err, &invalid, "malformed tokens must yield InvalidTokenError")
		})
	}
}

func mustEncodeRaw(t *testing.T, tok tokenV3) string {
	t.Helper()
	raw, err := json.Marshal(tok)
	require.NoError(t, err)
	return tokenPrefixV3 + base64.RawURLEncoding.EncodeToString(raw)
}
