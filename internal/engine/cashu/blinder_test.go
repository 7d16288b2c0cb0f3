package cashu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitAmount(t *testing.T) {
	cases := []struct {
		amount int64
		want   []int64
	}{
		{0, nil},
		{1, []int64{1}},
		{2, []int64{2}},
		{40, []int64{8, 32}},
		{63, []int64{1, 2, 4, 8, 16, 32}},
		{64, []int64{64}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, splitAmount(tc.amount), "amount %d", tc.amount)
	}
}

func TestBlankAmounts(t *testing.T) {
	cases := []struct {
		feeReserve int64
		count      int
	}{
		{0, 0},
		{1, 1},
		{2, 1},
		{3, 2},
		{4, 2},
		{5, 3},
		{1000, 10},
	}
	for _, tc := range cases {
		got := blankAmounts(tc.feeReserve)
		assert.Len(t, got, tc.count, "fee reserve %d", tc.feeReserve)
		for _, a := range got {
			assert.Equal(t, int64(1), a)
		}
	}
}
