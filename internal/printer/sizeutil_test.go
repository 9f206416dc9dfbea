package printer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatBytes(t *testing.T) {
	tests := map[string]struct {
		input int64
		exp   string
	}{
		"zero bytes": {
			input: 0,
			exp:   "0 B",
		},
		"negative bytes should return zero": {
			input: -1,
			exp:   "0 B",
		},
		"bytes": {
			input: 900,
			exp:   "900 B",
		},
		"kilobytes": {
			input: 1536,
			exp:   "1.5 KB",
		},
		"megabytes": {
			input: 250 * 1024 * 1024,
			exp:   "250.0 MB",
		},
		"typical quantized model size": {
			input: 4*1024*1024*1024 + 700*1024*1024,
			exp:   "4.7 GB",
		},
		"large model size": {
			input: 40 * 1024 * 1024 * 1024,
			exp:   "40.0 GB",
		},
		"terabytes": {
			input: 2 * 1024 * 1024 * 1024 * 1024,
			exp:   "2.0 TB",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, FormatBytes(test.input))
		})
	}
}
