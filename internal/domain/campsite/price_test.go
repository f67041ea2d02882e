package campsite

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr string
	}{
		{raw: `25`, want: 2500},
		{raw: `25.5`, want: 2550},
		{raw: `" 40.25 "`, want: 4025},
		{raw: `0`, wantErr: "Price must be greater than 0"},
		{raw: `-3`, wantErr: "Price must be greater than 0"},
		{raw: `0.001`, wantErr: "Price must be greater than 0"},
		{raw: `"cheap"`, wantErr: "Invalid price format"},
		{raw: `true`, wantErr: "Invalid price format"},
		{raw: `null`, wantErr: "Invalid price format"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParsePrice(json.RawMessage(tt.raw))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePriceFilter(t *testing.T) {
	got, err := ParsePriceFilter("min_price", "")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = ParsePriceFilter("min_price", "19.99")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1999), *got)

	_, err = ParsePriceFilter("max_price", "abc")
	require.Error(t, err)
	assert.Equal(t, "Invalid max_price format", err.Error())
}
