package engine

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veildex/match-engine/config"
	"github.com/veildex/match-engine/types"
)

var testRoundID = crypto.Keccak256Hash([]byte("round-1"))

func testEngine(t *testing.T, signed bool) *Engine {
	t.Helper()
	cfg := config.EngineConfig{MinOutBps: 9950}
	if !signed {
		return New(cfg, nil, zap.NewNop())
	}
	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	return New(cfg, key, zap.NewNop())
}

func scenarioAIntents(t *testing.T) []json.RawMessage {
	t.Helper()
	traders := []string{
		testTraderA,
		testTraderB,
		"0x3333333333333333333333333333333333333333",
		"0x4444444444444444444444444444444444444444",
	}
	sides := []string{"buy", "buy", "sell", "sell"}
	amounts := []string{"15", "5", "10", "7"}

	intents := make([]json.RawMessage, 0, 4)
	for i := range traders {
		in := validRawIntent()
		in.Side = sides[i]
		in.Trader = traders[i]
		in.AmountBase = amounts[i]
		in.LimitPrice = "1"
		in.IntentID = fmt.Sprintf("intent-%d", i)
		intents = append(intents, mustRaw(t, in))
	}
	return intents
}

func Test_Run_scenarioA(t *testing.T) {
	eng := testEngine(t, true)

	res, err := eng.Run(RoundArgs{RoundID: testRoundID, Now: 1000}, scenarioAIntents(t))
	require.NoError(t, err)

	assert.Equal(t, testRoundID.Hex(), res.RoundID)
	assert.Equal(t, 4, res.TotalIntents)
	assert.Equal(t, 4, res.EligibleIntents)
	require.Len(t, res.Matches, 6, "3 fills, 2 entries each")

	// First fill is sized by the 10-unit sell.
	assert.Equal(t, "10000000000000000000", res.Matches[1].AmountIn)

	assert.NotEqual(t, zeroRoot.Hex(), res.MerkleRoot)
	require.NotNil(t, res.RoundExpiry)
	assert.Equal(t, int64(2000), *res.RoundExpiry)

	require.NotNil(t, res.Signer)
	for _, m := range res.Matches {
		require.NotNil(t, m.Signature)

		// Every emitted proof verifies against the emitted root.
		proof := make([]common.Hash, len(m.Proof))
		for i, p := range m.Proof {
			proof[i] = common.HexToHash(p)
		}
		assert.True(t, VerifyProof(common.HexToHash(m.Leaf), proof, common.HexToHash(res.MerkleRoot)))
	}
}

func Test_Run_scenarioB_disjointPairs(t *testing.T) {
	buy := validRawIntent()
	buy.IntentID = "intent-0"

	sell := validRawIntent()
	sell.Side = "sell"
	sell.Trader = testTraderB
	sell.BaseToken = "0xcccCCCcCcCCcccCcCcCCCCcCcCCccCcCCCCcCccc"
	sell.IntentID = "intent-1"

	eng := testEngine(t, true)
	res, err := eng.Run(RoundArgs{RoundID: testRoundID, Now: 1000},
		[]json.RawMessage{mustRaw(t, buy), mustRaw(t, sell)})
	require.NoError(t, err)

	assert.Equal(t, 2, res.EligibleIntents)
	assert.Empty(t, res.Matches)
	assert.Nil(t, res.RoundExpiry)
}

func Test_Run_scenarioC_expiredOrderNeverMatches(t *testing.T) {
	buy := validRawIntent()
	buy.LimitPrice = "2" // would cross

	sell := validRawIntent()
	sell.Side = "sell"
	sell.Trader = testTraderB
	sell.LimitPrice = "1"
	sell.Expiry = 900 // already expired

	eng := testEngine(t, true)
	res, err := eng.Run(RoundArgs{RoundID: testRoundID, Now: 1000},
		[]json.RawMessage{mustRaw(t, buy), mustRaw(t, sell)})
	require.NoError(t, err)

	assert.Equal(t, 2, res.TotalIntents)
	assert.Equal(t, 1, res.EligibleIntents)
	assert.Empty(t, res.Matches)

	for _, m := range res.Matches {
		assert.NotEqual(t, common.HexToAddress(testTraderB).Hex(), m.Trader)
		assert.NotEqual(t, common.HexToAddress(testTraderB).Hex(), m.Counterparty)
	}
}

func Test_Run_scenarioD_emptyRound(t *testing.T) {
	eng := testEngine(t, true)

	res, err := eng.Run(RoundArgs{RoundID: testRoundID, Now: 1000}, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, res.TotalIntents)
	assert.Equal(t, 0, res.EligibleIntents)
	assert.Equal(t, zeroRoot.Hex(), res.MerkleRoot, "empty round commits the all-zero sentinel")
	assert.NotNil(t, res.Matches)
	assert.Empty(t, res.Matches)
	assert.Nil(t, res.RoundExpiry)
}

func Test_Run_deterministic(t *testing.T) {
	eng := testEngine(t, true)
	args := RoundArgs{RoundID: testRoundID, Now: 1000}

	first, err := eng.Run(args, scenarioAIntents(t))
	require.NoError(t, err)
	second, err := eng.Run(args, scenarioAIntents(t))
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, firstJSON, secondJSON, "identical inputs must produce byte-identical results")
}

func Test_Run_unsignedDegradation(t *testing.T) {
	eng := testEngine(t, false)

	res, err := eng.Run(RoundArgs{RoundID: testRoundID, Now: 1000}, scenarioAIntents(t))
	require.NoError(t, err)

	assert.Nil(t, res.Signer)
	require.NotEmpty(t, res.Matches)
	for _, m := range res.Matches {
		assert.Nil(t, m.Signature)
	}
	assert.NotEqual(t, zeroRoot.Hex(), res.MerkleRoot, "unsigned batches still commit")
}

func Test_Run_priceInvariant(t *testing.T) {
	// Mixed prices: every executed fill must satisfy buy >= sell at the
	// resting sell's price.
	intents := scenarioAIntents(t)

	low := validRawIntent()
	low.Side = "buy"
	low.Trader = "0x5555555555555555555555555555555555555555"
	low.LimitPrice = "0.5" // never crosses the 1.0 sells
	low.IntentID = "intent-low"
	intents = append(intents, mustRaw(t, low))

	eng := testEngine(t, true)
	res, err := eng.Run(RoundArgs{RoundID: testRoundID, Now: 1000}, intents)
	require.NoError(t, err)

	require.Len(t, res.Matches, 6)
	for _, m := range res.Matches {
		assert.NotEqual(t, common.HexToAddress("0x5555555555555555555555555555555555555555").Hex(), m.Trader)
	}
}

func Test_Run_overflowFailsWholeRound(t *testing.T) {
	// A quote leg beyond uint256 blows up mid-pipeline; the run must fail
	// closed instead of emitting a partial result.
	buy := validRawIntent()
	buy.AmountBase = "1" + strings.Repeat("0", 72)
	buy.LimitPrice = "1"
	buy.TokenPair = TokenPair{Base: TokenMeta{Decimals: 0}, Quote: TokenMeta{Decimals: 76}}

	sell := buy
	sell.Side = "sell"
	sell.Trader = testTraderB

	eng := testEngine(t, true)
	res, err := eng.Run(RoundArgs{RoundID: testRoundID, Now: 1000},
		[]json.RawMessage{mustRaw(t, buy), mustRaw(t, sell)})

	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrRoundFailed)
	assert.Nil(t, res)
}

func Test_ParseRoundPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{
			name:    "valid",
			payload: fmt.Sprintf(`{"roundId":%q,"intents":[]}`, testRoundID.Hex()),
		}, {
			name:    "not json",
			payload: `{{`,
			wantErr: true,
		}, {
			name:    "missing round id",
			payload: `{"intents":[]}`,
			wantErr: true,
		}, {
			name:    "short round id",
			payload: `{"roundId":"0x1234","intents":[]}`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseRoundPayload([]byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testRoundID.Hex(), p.RoundID)
		})
	}
}

func Test_RoundPayload_Args(t *testing.T) {
	p := &RoundPayload{
		RoundID:     testRoundID.Hex(),
		Commitments: map[string]string{"intent-a": "0x01"},
	}

	args := p.Args(true, 1234)
	assert.Equal(t, testRoundID, args.RoundID)
	assert.Equal(t, int64(1234), args.Now)
	assert.True(t, args.RequireCommitments, "node default applies when payload doesn't require")
	assert.Equal(t, common.HexToHash("0x01"), args.Commitments["intent-a"])
}
