package jsonfile

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/malbeclabs/raffle/raffle/pkg/raffle"
)

const indent = "  "

// EncodeWinners renders the airdrop list as a two-space indented JSON array
// without a trailing newline.
func EncodeWinners(winners []raffle.Winner) ([]byte, error) {
	if winners == nil {
		winners = []raffle.Winner{}
	}
	return encode(winners)
}

// EncodeResults renders the per-depositor settlement keyed by owner, in
// dataset order.
func EncodeResults(results *raffle.Results) ([]byte, error) {
	if results == nil {
		return []byte("{}"), nil
	}
	return encode(results)
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode json: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
