package engine

import (
	"math/big"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Leaf layout is a wire contract with the on-chain verifier: keccak256 over
// nine 32-byte words in this exact order. Changing anything here breaks
// settlement authorization.
//
//	roundId      bytes32
//	matchIdHash  bytes32  keccak256(matchId string)
//	trader       address, left-padded
//	counterparty address, left-padded
//	tokenIn      address, left-padded
//	tokenOut     address, left-padded
//	amountIn     uint256
//	minAmountOut uint256
//	expiry       uint256
func encodeLeaf(roundID common.Hash, e *matchEntry) common.Hash {
	buf := make([]byte, 0, 9*32)
	buf = append(buf, roundID.Bytes()...)
	buf = append(buf, matchIDHash(e.matchID).Bytes()...)
	buf = append(buf, addressWord(e.trader)...)
	buf = append(buf, addressWord(e.counterparty)...)
	buf = append(buf, addressWord(e.tokenIn)...)
	buf = append(buf, addressWord(e.tokenOut)...)
	buf = append(buf, uint256Word(e.amountIn)...)
	buf = append(buf, uint256Word(e.minAmountOut)...)
	buf = append(buf, common.BigToHash(big.NewInt(e.expiry)).Bytes()...)
	return crypto.Keccak256Hash(buf)
}

func matchIDHash(id string) common.Hash {
	return crypto.Keccak256Hash([]byte(id))
}

func addressWord(a common.Address) []byte {
	return common.LeftPadBytes(a.Bytes(), 32)
}

func uint256Word(i math.Int) []byte {
	return common.BigToHash(i.BigInt()).Bytes()
}
