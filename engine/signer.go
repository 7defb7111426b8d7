package engine

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/veildex/match-engine/types"
)

// signer holds the enclave key for one run. The key is treated as a
// capability: it is read per leaf, exposed only through the recovered
// address, and never logged.
type signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func newSigner(key *ecdsa.PrivateKey) *signer {
	return &signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

// signLeaf signs the Ethereum signed-message digest of the raw leaf bytes,
// recoverable on-chain via ecrecover. V is shifted to {27,28}.
func (s *signer) signLeaf(leaf common.Hash) ([]byte, error) {
	digest := accounts.TextHash(leaf.Bytes())
	sig, err := crypto.Sign(digest, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign leaf %s: %w", leaf, err)
	}
	sig[64] += 27
	return sig, nil
}

// LoadSignerKey resolves the enclave signing key from config: an explicit hex
// key wins, otherwise the key file is read. A missing or invalid key is a
// soft degradation (the round runs unsigned), signalled with ErrNoSignerKey
// so callers can log it.
func LoadSignerKey(hexKey, keyFile string) (*ecdsa.PrivateKey, error) {
	if hexKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
		if err != nil {
			return nil, errorsmod.Wrapf(types.ErrNoSignerKey, "invalid hex key: %v", err)
		}
		return key, nil
	}

	if keyFile != "" {
		if _, err := os.Stat(keyFile); err == nil {
			key, err := crypto.LoadECDSA(keyFile)
			if err != nil {
				return nil, errorsmod.Wrapf(types.ErrNoSignerKey, "invalid key file %s: %v", keyFile, err)
			}
			return key, nil
		}
	}

	return nil, errorsmod.Wrap(types.ErrNoSignerKey, "no key configured")
}
