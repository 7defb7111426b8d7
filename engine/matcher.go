package engine

import (
	"fmt"
	"math/big"
	"sort"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

// matchOrders runs the batch double auction: orders are grouped by pair key,
// groups are walked in lexicographic order, and within a group the best
// remaining buy and sell are crossed until prices no longer overlap.
// fillIndex increments globally so matchIds are unique across groups.
func matchOrders(orders []*order, minOutBps int64) []matchEntry {
	groups := make(map[string][]*order)
	for _, o := range orders {
		k := o.pairKey()
		groups[k] = append(groups[k], o)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var entries []matchEntry
	fillIndex := 0
	for _, k := range keys {
		entries = append(entries, matchGroup(groups[k], minOutBps, &fillIndex)...)
	}
	return entries
}

func matchGroup(group []*order, minOutBps int64, fillIndex *int) []matchEntry {
	var buys, sells []*order
	for _, o := range group {
		if o.side == SideBuy {
			buys = append(buys, o)
		} else {
			sells = append(sells, o)
		}
	}

	// Price-time priority: best price first, arrival index breaks ties.
	sort.Slice(buys, func(i, j int) bool {
		if !buys[i].limitPriceWad.Equal(buys[j].limitPriceWad) {
			return buys[i].limitPriceWad.GT(buys[j].limitPriceWad)
		}
		return buys[i].index < buys[j].index
	})
	sort.Slice(sells, func(i, j int) bool {
		if !sells[i].limitPriceWad.Equal(sells[j].limitPriceWad) {
			return sells[i].limitPriceWad.LT(sells[j].limitPriceWad)
		}
		return sells[i].index < sells[j].index
	})

	var entries []matchEntry
	bi, si := 0, 0
	for bi < len(buys) && si < len(sells) {
		buy, sell := buys[bi], sells[si]
		if buy.limitPriceWad.LT(sell.limitPriceWad) {
			// Best buy no longer crosses the best sell: nothing else in
			// this group can match.
			break
		}

		fillBase := math.MinInt(buy.remainingBase, sell.remainingBase)
		// Fills execute at the resting sell's limit price.
		quoteLeg := quoteLegAt(fillBase, sell.limitPriceWad, buy.baseDecimals, buy.quoteDecimals)
		expiry := min(buy.expiry, sell.expiry)

		entries = append(entries,
			matchEntry{
				matchID:      matchID(*fillIndex, SideBuy, buy.trader, sell.trader),
				trader:       buy.trader,
				counterparty: sell.trader,
				tokenIn:      buy.quoteToken,
				tokenOut:     buy.baseToken,
				amountIn:     quoteLeg,
				minAmountOut: applyBpsFloor(fillBase, minOutBps),
				expiry:       expiry,
			},
			matchEntry{
				matchID:      matchID(*fillIndex, SideSell, sell.trader, buy.trader),
				trader:       sell.trader,
				counterparty: buy.trader,
				tokenIn:      sell.baseToken,
				tokenOut:     sell.quoteToken,
				amountIn:     fillBase,
				minAmountOut: applyBpsFloor(quoteLeg, minOutBps),
				expiry:       expiry,
			},
		)
		*fillIndex++

		buy.remainingBase = buy.remainingBase.Sub(fillBase)
		sell.remainingBase = sell.remainingBase.Sub(fillBase)
		if buy.remainingBase.IsZero() {
			bi++
		}
		if sell.remainingBase.IsZero() {
			si++
		}
	}
	return entries
}

func matchID(fillIndex int, role Side, trader, counterparty common.Address) string {
	return fmt.Sprintf("fill:%d:%s:%s:%s", fillIndex, role, trader.Hex(), counterparty.Hex())
}

// quoteLegAt prices fillBase base units at priceWad, floored:
// quoteLeg = fillBase * priceWad * 10^quoteDec / (10^baseDec * 1e18).
// Intermediate products run on raw big.Ints so extreme decimals can't
// overflow the 256-bit math.Int limit mid-computation.
func quoteLegAt(fillBase, priceWad math.Int, baseDec, quoteDec uint8) math.Int {
	num := new(big.Int).Mul(fillBase.BigInt(), priceWad.BigInt())
	num.Mul(num, pow10(quoteDec))
	den := new(big.Int).Mul(pow10(baseDec), wadBig)
	num.Quo(num, den)
	return math.NewIntFromBigInt(num)
}

// applyBpsFloor returns floor(amount * bps / 10000).
func applyBpsFloor(amount math.Int, bps int64) math.Int {
	return amount.Mul(math.NewInt(bps)).Quo(math.NewInt(10000))
}
