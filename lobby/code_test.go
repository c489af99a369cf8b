/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package lobby

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoomCode(t *testing.T) {
	seen := map[string]struct{}{}

	for i := 0; i < 100; i++ {
		code, err := NewRoomCode()
		require.NoError(t, err)
		require.Len(t, code, 6)

		for _, r := range code {
			assert.True(t, strings.ContainsRune(roomCodeAlphabet, r), "unexpected %q in %s", r, code)
		}

		seen[code] = struct{}{}
	}

	assert.Greater(t, len(seen), 90)
}

func TestRoomCodeSymbolsAreUniform(t *testing.T) {
	counts := make(map[rune]int, len(roomCodeAlphabet))

	const codes = 6000

	for i := 0; i < codes; i++ {
		code, err := NewRoomCode()
		require.NoError(t, err)

		for _, r := range code {
			counts[r]++
		}
	}

	// 1000 draws per symbol; a biased generator favours the first 4 symbols
	// by about 14%, well outside this band.
	expected := float64(codes*roomCodeLength) / float64(len(roomCodeAlphabet))

	require.Len(t, counts, len(roomCodeAlphabet))

	first, last := 0, 0
	for i, r := range roomCodeAlphabet {
		if i < 4 {
			first += counts[r]
		} else {
			last += counts[r]
		}
	}

	ratio := (float64(first) / 4) / (float64(last) / float64(len(roomCodeAlphabet)-4))
	assert.InDelta(t, 1.0, ratio, 0.06, "expected about %.0f per symbol, got %v", expected, counts)
}
