package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"+1 (555) 010-0000": "+15550100000",
		"555.010.0000":      "5550100000",
		"  +86 138-0000 ":   "+861380000",
		"8613800000000":     "8613800000000",
		"+":                 "",
		"":                  "",
		"ext. abc":          "",
	}
	for input, want := range cases {
		assert.Equal(t, want, NormalizePhone(input), "input %q", input)
	}
}
