package engine

import (
	"github.com/google/uuid"
)

// MatchRecord is one settled side of a fill as published to the relayer.
// Amounts are decimal-string integers so downstream consumers never touch
// floats.
type MatchRecord struct {
	MatchID      string   `json:"matchId"`
	MatchIDHash  string   `json:"matchIdHash"`
	Trader       string   `json:"trader"`
	Counterparty string   `json:"counterparty"`
	TokenIn      string   `json:"tokenIn"`
	TokenOut     string   `json:"tokenOut"`
	AmountIn     string   `json:"amountIn"`
	MinAmountOut string   `json:"minAmountOut"`
	Expiry       int64    `json:"expiry"`
	Leaf         string   `json:"leaf"`
	Proof        []string `json:"proof"`
	Signature    *string  `json:"signature"`
}

// RoundResult is the engine's single output record for one round. It is
// emitted all-or-nothing: a failed run produces an ErrorArtifact instead,
// never a partially populated result.
type RoundResult struct {
	RoundID         string        `json:"roundId"`
	TotalIntents    int           `json:"totalIntents"`
	EligibleIntents int           `json:"eligibleIntents"`
	MerkleRoot      string        `json:"merkleRoot"`
	RoundExpiry     *int64        `json:"roundExpiry"`
	Matches         []MatchRecord `json:"matches"`
	Signer          *string       `json:"signer"`
}

// ErrorArtifact is the fixed-shape record written when a round fails.
type ErrorArtifact struct {
	Status  string `json:"status"`
	RoundID string `json:"roundId"`
	Error   string `json:"error"`
	TaskID  string `json:"taskId"`
}

func NewErrorArtifact(roundID string, err error) *ErrorArtifact {
	return &ErrorArtifact{
		Status:  "failed",
		RoundID: roundID,
		Error:   err.Error(),
		TaskID:  uuid.NewString(),
	}
}
