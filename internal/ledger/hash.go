package ledger

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/openalpha/betexchange/pkg/types"
)

// DeriveBetID hashes the placement inputs with Keccak256 and truncates to
// the low 8 bytes as a uint64 (spec §4.3 step 3). The hash covers every
// field the original content-addressed scheme used, plus the block
// timestamp/nonce, so two placements with identical business fields in the
// same block still collide only with cryptographically negligible
// probability.
func DeriveBetID(
	bettor types.Address,
	sport types.Sport,
	marketID types.MarketID,
	selection types.SelectionID,
	odds types.Odds,
	betType types.BetType,
	paymentToken string,
	paymentNonce uint64,
	amount *big.Int,
	blockTimestamp int64,
	blockNonce uint64,
) uint64 {
	buf := make([]byte, 0, 20+8*6+len(paymentToken)+len(amount.Bytes()))
	buf = append(buf, bettor.Bytes()...)
	buf = appendUint64(buf, uint64(sport))
	buf = appendUint64(buf, uint64(marketID))
	buf = appendUint64(buf, uint64(selection))
	buf = appendUint64(buf, uint64(odds))
	buf = appendUint64(buf, uint64(betType))
	buf = append(buf, []byte(paymentToken)...)
	buf = appendUint64(buf, paymentNonce)
	buf = append(buf, amount.Bytes()...)
	buf = appendUint64(buf, uint64(blockTimestamp))
	buf = appendUint64(buf, blockNonce)

	digest := crypto.Keccak256(buf)
	return binary.BigEndian.Uint64(digest[len(digest)-8:])
}

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}
