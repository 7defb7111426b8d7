package engine

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// RoundPayload is the round-scoped argument record handed over by the
// confidential-compute runtime. Intents stay raw here so one corrupt record
// can be rejected on its own during ingestion instead of poisoning the batch.
type RoundPayload struct {
	RoundID            string            `json:"roundId"`
	Now                *int64            `json:"now,omitempty"`
	RequireCommitments bool              `json:"requireCommitments,omitempty"`
	Commitments        map[string]string `json:"commitments,omitempty"`
	Intents            []json.RawMessage `json:"intents"`
}

func ParseRoundPayload(data []byte) (*RoundPayload, error) {
	var p RoundPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode round payload: %w", err)
	}

	id, err := hexutil.Decode(p.RoundID)
	if err != nil {
		return nil, fmt.Errorf("invalid round id %q: %w", p.RoundID, err)
	}
	if len(id) != common.HashLength {
		return nil, fmt.Errorf("invalid round id %q: want %d bytes, got %d", p.RoundID, common.HashLength, len(id))
	}

	return &p, nil
}

// Args materializes the opaque engine inputs. The commitment requirement is
// the stricter of the payload's policy and the node's configured default.
func (p *RoundPayload) Args(requireCommitments bool, now int64) RoundArgs {
	args := RoundArgs{
		RoundID:            common.HexToHash(p.RoundID),
		Now:                now,
		RequireCommitments: p.RequireCommitments || requireCommitments,
	}
	if len(p.Commitments) > 0 {
		args.Commitments = make(map[string]common.Hash, len(p.Commitments))
		for id, c := range p.Commitments {
			args.Commitments[id] = common.HexToHash(c)
		}
	}
	return args
}
