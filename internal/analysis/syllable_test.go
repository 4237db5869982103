package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyllableHint(t *testing.T) {
	cases := []struct {
		word string
		want string
	}{
		{"banana", "ba-na-na"},
		{"hello", "he-llo"},
		{"think", "think"},
		{"idea", "i-dea"},
		{"strength", "strength"},
		{"Water", "wa-ter"},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, SyllableHint(c.word), "word=%q", c.word)
	}
}
