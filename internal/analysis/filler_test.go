package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountFillers(t *testing.T) {
	stats := CountFillers("so um basically I think um it's fine")
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, map[string]int{"so": 1, "um": 2, "basically": 1}, stats.Breakdown)
}

func TestCountFillersCaseInsensitive(t *testing.T) {
	stats := CountFillers("Um, UM... You Know what I mean")
	assert.Equal(t, 2, stats.Breakdown["um"])
	assert.Equal(t, 1, stats.Breakdown["you know"])
	assert.Equal(t, 1, stats.Breakdown["i mean"])
}

func TestCountFillersWholeWordOnly(t *testing.T) {
	// "um" 不应命中 "umbrella"，"so" 不应命中 "also"
	stats := CountFillers("my umbrella is also nice")
	assert.Equal(t, 0, stats.Total)
	assert.Empty(t, stats.Breakdown)
}

func TestCountFillersIdempotent(t *testing.T) {
	transcript := "well um I kind of like it you know"
	first := CountFillers(transcript)
	second := CountFillers(transcript)
	assert.Equal(t, first, second)
}

func TestCountWords(t *testing.T) {
	assert.Equal(t, 0, CountWords(""))
	assert.Equal(t, 0, CountWords("   "))
	assert.Equal(t, 3, CountWords("  one  two   three "))
}
