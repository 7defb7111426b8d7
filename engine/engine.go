package engine

import (
	"crypto/ecdsa"
	"encoding/json"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"github.com/veildex/match-engine/config"
	"github.com/veildex/match-engine/types"
)

// Engine runs one batch round end to end: ingest, match, encode, commit,
// sign, assemble. It holds configuration and the signing capability only.
// No order or result data survives a run, so re-invoking with identical
// inputs is always safe.
type Engine struct {
	minOutBps int64
	signer    *signer
	logger    *zap.Logger
}

func New(cfg config.EngineConfig, key *ecdsa.PrivateKey, logger *zap.Logger) *Engine {
	e := &Engine{
		minOutBps: cfg.MinOutBps,
		logger:    logger.With(zap.String("module", "engine")),
	}
	if e.minOutBps <= 0 || e.minOutBps > 10000 {
		e.minOutBps = config.DefaultMinOutBps
	}
	if key != nil {
		e.signer = newSigner(key)
	}
	return e
}

// SignerAddress reports the address leaves will be signed under, if any.
func (e *Engine) SignerAddress() (common.Address, bool) {
	if e.signer == nil {
		return common.Address{}, false
	}
	return e.signer.address, true
}

// Run executes one round. Individual malformed intents are dropped inside
// ingestion; any other failure, including panics from arithmetic overflow,
// fails the whole round. There is no partial success.
func (e *Engine) Run(args RoundArgs, intents []json.RawMessage) (res *RoundResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = errorsmod.Wrapf(types.ErrRoundFailed, "panic: %v", r)
		}
	}()

	logger := e.logger.With(zap.String("round", args.RoundID.Hex()))

	orders, total := ingestIntents(intents, args, logger)
	logger.Info("intents ingested",
		zap.Int("total", total),
		zap.Int("eligible", len(orders)),
	)

	entries := matchOrders(orders, e.minOutBps)

	leaves := make([]common.Hash, len(entries))
	for i := range entries {
		leaves[i] = encodeLeaf(args.RoundID, &entries[i])
	}

	tree := buildMerkleTree(leaves)

	res = &RoundResult{
		RoundID:         args.RoundID.Hex(),
		TotalIntents:    total,
		EligibleIntents: len(orders),
		MerkleRoot:      tree.root.Hex(),
		Matches:         make([]MatchRecord, 0, len(entries)),
	}

	for i := range entries {
		rec, err := e.assembleMatch(&entries[i], leaves[i], tree.proofs[i])
		if err != nil {
			return nil, errorsmod.Wrapf(types.ErrRoundFailed, "%v", err)
		}
		res.Matches = append(res.Matches, rec)

		if res.RoundExpiry == nil || entries[i].expiry < *res.RoundExpiry {
			expiry := entries[i].expiry
			res.RoundExpiry = &expiry
		}
	}

	if e.signer != nil {
		addr := e.signer.address.Hex()
		res.Signer = &addr
	}

	logger.Info("round matched",
		zap.Int("fills", len(entries)/2),
		zap.Int("entries", len(entries)),
		zap.String("merkle_root", res.MerkleRoot),
		zap.Bool("signed", e.signer != nil),
	)
	return res, nil
}

func (e *Engine) assembleMatch(entry *matchEntry, leaf common.Hash, proof []common.Hash) (MatchRecord, error) {
	rec := MatchRecord{
		MatchID:      entry.matchID,
		MatchIDHash:  matchIDHash(entry.matchID).Hex(),
		Trader:       entry.trader.Hex(),
		Counterparty: entry.counterparty.Hex(),
		TokenIn:      entry.tokenIn.Hex(),
		TokenOut:     entry.tokenOut.Hex(),
		AmountIn:     entry.amountIn.String(),
		MinAmountOut: entry.minAmountOut.String(),
		Expiry:       entry.expiry,
		Leaf:         leaf.Hex(),
		Proof:        make([]string, 0, len(proof)),
	}
	for _, sib := range proof {
		rec.Proof = append(rec.Proof, sib.Hex())
	}

	if e.signer != nil {
		sig, err := e.signer.signLeaf(leaf)
		if err != nil {
			return MatchRecord{}, err
		}
		sigHex := hexutil.Encode(sig)
		rec.Signature = &sigHex
	}
	return rec, nil
}
