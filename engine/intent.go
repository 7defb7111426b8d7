package engine

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/veildex/match-engine/types"
)

// RawIntent is one decrypted order record as handed over by the runtime.
type RawIntent struct {
	Side       string    `json:"side"`
	Trader     string    `json:"trader"`
	BaseToken  string    `json:"baseToken"`
	QuoteToken string    `json:"quoteToken"`
	AmountBase string    `json:"amountBase"`
	LimitPrice string    `json:"limitPrice"`
	Expiry     int64     `json:"expiry"`
	TokenPair  TokenPair `json:"tokenPair"`
	Salt       string    `json:"salt,omitempty"`
	IntentID   string    `json:"intentId,omitempty"`
}

type TokenPair struct {
	Base  TokenMeta `json:"base"`
	Quote TokenMeta `json:"quote"`
}

type TokenMeta struct {
	Decimals uint8 `json:"decimals"`
}

// ingestIntents validates and normalizes raw records into orders. A record
// failing any check is dropped and counted only in the total; a single corrupt
// record is never fatal to the batch.
func ingestIntents(raw []json.RawMessage, args RoundArgs, logger *zap.Logger) (eligible []*order, total int) {
	total = len(raw)

	for i, rec := range raw {
		o, err := normalizeIntent(i, rec, args)
		if err != nil {
			logger.Debug("dropping intent", zap.Int("index", i), zap.Error(err))
			continue
		}
		if o.expiry <= args.Now {
			logger.Debug("dropping expired intent", zap.Int("index", i), zap.Int64("expiry", o.expiry))
			continue
		}
		o.index = len(eligible)
		eligible = append(eligible, o)
	}

	return eligible, total
}

func normalizeIntent(idx int, raw json.RawMessage, args RoundArgs) (*order, error) {
	var in RawIntent
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, errorsmod.Wrapf(types.ErrInvalidIntent, "failed to decode record: %v", err)
	}

	side := Side(strings.ToLower(strings.TrimSpace(in.Side)))
	if side != SideBuy && side != SideSell {
		return nil, errorsmod.Wrapf(types.ErrInvalidIntent, "invalid side %q", in.Side)
	}

	if !common.IsHexAddress(in.Trader) {
		return nil, errorsmod.Wrapf(types.ErrInvalidIntent, "invalid trader address %q", in.Trader)
	}
	if !common.IsHexAddress(in.BaseToken) {
		return nil, errorsmod.Wrapf(types.ErrInvalidIntent, "invalid base token address %q", in.BaseToken)
	}
	if !common.IsHexAddress(in.QuoteToken) {
		return nil, errorsmod.Wrapf(types.ErrInvalidIntent, "invalid quote token address %q", in.QuoteToken)
	}

	if in.Expiry <= 0 {
		return nil, errorsmod.Wrapf(types.ErrInvalidIntent, "invalid expiry %d", in.Expiry)
	}

	amountWei, err := parseAmountWei(in.AmountBase, in.TokenPair.Base.Decimals)
	if err != nil {
		return nil, errorsmod.Wrapf(types.ErrInvalidIntent, "amount: %v", err)
	}

	priceWad, err := parsePriceWad(in.LimitPrice)
	if err != nil {
		return nil, errorsmod.Wrapf(types.ErrInvalidIntent, "price: %v", err)
	}

	intentID := in.IntentID
	if intentID == "" {
		intentID = fmt.Sprintf("intent-%d", idx)
	}

	o := &order{
		side:          side,
		trader:        common.HexToAddress(in.Trader),
		baseToken:     common.HexToAddress(in.BaseToken),
		quoteToken:    common.HexToAddress(in.QuoteToken),
		baseDecimals:  in.TokenPair.Base.Decimals,
		quoteDecimals: in.TokenPair.Quote.Decimals,
		remainingBase: amountWei,
		limitPriceWad: priceWad,
		expiry:        in.Expiry,
		intentID:      intentID,
	}

	if err := checkCommitment(o, in, args); err != nil {
		return nil, err
	}

	return o, nil
}

// checkCommitment recomputes the intake commitment against the one supplied by
// the runtime. Absence of an expected commitment only excludes the record when
// the round's policy requires commitments; an explicit mismatch always does.
func checkCommitment(o *order, in RawIntent, args RoundArgs) error {
	expected, ok := args.Commitments[in.IntentID]
	if !ok {
		if args.RequireCommitments {
			return errorsmod.Wrapf(types.ErrCommitmentMismatch, "commitment required but not supplied for %q", in.IntentID)
		}
		return nil
	}

	got := computeCommitment(o, common.HexToHash(in.Salt))
	if got != expected {
		return errorsmod.Wrapf(types.ErrCommitmentMismatch, "intent %q: got %s, want %s", in.IntentID, got, expected)
	}
	return nil
}

// computeCommitment binds the revealed order back to its intake reference:
// keccak256 over 32-byte words, side hashed as a string tag, salt as bytes32.
// Called before the matcher mutates remainingBase.
func computeCommitment(o *order, salt common.Hash) common.Hash {
	buf := make([]byte, 0, 8*32)
	buf = append(buf, crypto.Keccak256([]byte(o.side))...)
	buf = append(buf, addressWord(o.trader)...)
	buf = append(buf, addressWord(o.baseToken)...)
	buf = append(buf, addressWord(o.quoteToken)...)
	buf = append(buf, uint256Word(o.remainingBase)...)
	buf = append(buf, uint256Word(o.limitPriceWad)...)
	buf = append(buf, common.BigToHash(big.NewInt(o.expiry)).Bytes()...)
	buf = append(buf, salt.Bytes()...)
	return crypto.Keccak256Hash(buf)
}

var wadBig = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

func pow10(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

// parseAmountWei converts a decimal token amount string into base units under
// the declared decimals, flooring any excess precision.
func parseAmountWei(s string, decimals uint8) (math.Int, error) {
	dec, err := math.LegacyNewDecFromStr(strings.TrimSpace(s))
	if err != nil {
		return math.Int{}, fmt.Errorf("failed to parse %q: %w", s, err)
	}
	if !dec.IsPositive() {
		return math.Int{}, fmt.Errorf("%q is not positive", s)
	}

	// dec.BigInt() is the 1e18-scaled raw value: scale up to the token's
	// decimals, then divide the 1e18 back out (floor).
	wei := new(big.Int).Mul(dec.BigInt(), pow10(decimals))
	wei.Quo(wei, wadBig)
	if wei.Sign() <= 0 {
		return math.Int{}, fmt.Errorf("%q truncates to zero at %d decimals", s, decimals)
	}
	if wei.BitLen() > 256 {
		return math.Int{}, fmt.Errorf("%q exceeds uint256 at %d decimals", s, decimals)
	}
	return math.NewIntFromBigInt(wei), nil
}

// parsePriceWad converts a decimal price string into 1e18 fixed point.
func parsePriceWad(s string) (math.Int, error) {
	dec, err := math.LegacyNewDecFromStr(strings.TrimSpace(s))
	if err != nil {
		return math.Int{}, fmt.Errorf("failed to parse %q: %w", s, err)
	}
	if !dec.IsPositive() {
		return math.Int{}, fmt.Errorf("%q is not positive", s)
	}
	wad := dec.BigInt()
	if wad.BitLen() > 256 {
		return math.Int{}, fmt.Errorf("%q exceeds uint256", s)
	}
	return math.NewIntFromBigInt(wad), nil
}
