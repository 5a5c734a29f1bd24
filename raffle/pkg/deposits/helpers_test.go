package deposits

import (
	"bytes"
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

type depositFields struct {
	nft    uint32
	amount uint64
	ts     int64
}

func key(b byte) solana.PublicKey {
	return solana.PublicKeyFromBytes(bytes.Repeat([]byte{b}, 32))
}

func encodeAccount(disc [8]byte, user, vault solana.PublicKey, totalNFT uint32, total uint64, deps ...depositFields) []byte {
	out := append([]byte{}, disc[:]...)
	out = append(out, user[:]...)
	out = binary.LittleEndian.AppendUint32(out, totalNFT)
	out = binary.LittleEndian.AppendUint64(out, total)
	out = append(out, vault[:]...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(deps)))
	for _, d := range deps {
		out = binary.LittleEndian.AppendUint32(out, d.nft)
		out = binary.LittleEndian.AppendUint64(out, d.amount)
		out = binary.LittleEndian.AppendUint64(out, uint64(d.ts))
	}
	return out
}
