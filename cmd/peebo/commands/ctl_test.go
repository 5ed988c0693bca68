package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	tests := map[string]struct {
		specs     []string
		expParams map[string]any
		expErr    bool
	}{
		"Plain values should be strings.": {
			specs:     []string{"url=example.com/jobs", "selector=#email"},
			expParams: map[string]any{"url": "example.com/jobs", "selector": "#email"},
		},
		"JSON values should be decoded.": {
			specs:     []string{"index=4", "screenshot=true", "x=10.5"},
			expParams: map[string]any{"index": float64(4), "screenshot": true, "x": 10.5},
		},
		"A quoted JSON string should keep digits as text.": {
			specs:     []string{`text="12345"`},
			expParams: map[string]any{"text": "12345"},
		},
		"Values can contain the separator.": {
			specs:     []string{"script=a=1"},
			expParams: map[string]any{"script": "a=1"},
		},
		"Later entries should override earlier ones.": {
			specs:     []string{"key=tab", "key=enter"},
			expParams: map[string]any{"key": "enter"},
		},
		"A spec without separator should fail.": {
			specs:  []string{"index"},
			expErr: true,
		},
		"A spec without key should fail.": {
			specs:  []string{"=3"},
			expErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			params, err := parseParams(tc.specs)

			if tc.expErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expParams, params)
		})
	}
}
