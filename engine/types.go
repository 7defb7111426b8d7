package engine

import (
	"fmt"
	"strings"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// order is a normalized, eligible intent. Orders live for exactly one round:
// the matcher decrements remainingBase in place and nothing retains them after
// the result is assembled.
type order struct {
	side          Side
	trader        common.Address
	baseToken     common.Address
	quoteToken    common.Address
	baseDecimals  uint8
	quoteDecimals uint8
	remainingBase math.Int
	limitPriceWad math.Int
	expiry        int64
	index         int
	intentID      string
}

// pairKey groups orders that are allowed to match with each other. Tokens are
// lower-cased so checksum casing differences don't split a pair.
func (o *order) pairKey() string {
	return fmt.Sprintf("%s:%s:%d:%d",
		strings.ToLower(o.baseToken.Hex()),
		strings.ToLower(o.quoteToken.Hex()),
		o.baseDecimals,
		o.quoteDecimals,
	)
}

// matchEntry is one side of an executed fill. A fill always produces two:
// the buyer's (tokenIn = quote) and the seller's (tokenIn = base).
type matchEntry struct {
	matchID      string
	trader       common.Address
	counterparty common.Address
	tokenIn      common.Address
	tokenOut     common.Address
	amountIn     math.Int
	minAmountOut math.Int
	expiry       int64
}

// RoundArgs are the opaque round-scoped inputs owned by the surrounding
// runtime: the engine never derives round ids or clocks itself.
type RoundArgs struct {
	RoundID            common.Hash
	Now                int64
	RequireCommitments bool
	Commitments        map[string]common.Hash
}
