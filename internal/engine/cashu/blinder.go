package cashu

import (
	"math/bits"

	"github.com/aeschylus/botwallets/internal/domain"
)

// BlindedMessage is an output submitted to the mint for signing.
type BlindedMessage struct {
	Amount   int64  `json:"amount"`
	KeysetID string `json:"id"`
	B        string `json:"B_"`
}

// BlindSignature is the mint's signature over a blinded message.
type BlindSignature struct {
	Amount   int64  `json:"amount"`
	KeysetID string `json:"id"`
	C        string `json:"C_"`
}

// Blinder constructs blinded outputs and unblinds the mint's signatures back
// into spendable proof units. The blind-signature scheme itself lives behind
// this boundary; the client only moves its artifacts over the wire. An
// implementation is expected to be stateful across a Blind/Unblind pair
// (it must remember its blinding factors and secrets).
type Blinder interface {
	Blind(keysetID string, amounts []int64) ([]BlindedMessage, error)
	Unblind(signatures []BlindSignature) ([]domain.ProofUnit, error)
}

// splitAmount decomposes an amount into power-of-two denominations,
// smallest first.
func splitAmount(amount int64) []int64 {
	var amounts []int64
	for bit := int64(1); amount > 0; bit <<= 1 {
		if amount&bit != 0 {
			amounts = append(amounts, bit)
			amount &^= bit
		}
	}
	return amounts
}

// blankAmounts returns the NUT-08 blank outputs used to return overpaid
// fees: ceil(log2(feeReserve)) one-unit placeholders.
func blankAmounts(feeReserve int64) []int64 {
	if feeReserve <= 0 {
		return nil
	}
	count := bits.Len64(uint64(feeReserve - 1))
	if count == 0 {
		count = 1
	}
	amounts := make([]int64, count)
	for i := range amounts {
		amounts[i] = 1
	}
	return amounts
}
