package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "formatted international", raw: "234 708-724 3475", want: "2347087243475"},
		{name: "plus prefix", raw: "+14155550123", want: "14155550123"},
		{name: "exactly ten digits", raw: "4155550123", want: "4155550123"},
		{name: "exactly fifteen digits", raw: "123456789012345", want: "123456789012345"},
		{name: "too short", raw: "123", wantErr: true},
		{name: "nine digits", raw: "123456789", wantErr: true},
		{name: "sixteen digits", raw: "1234567890123456", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "letters only", raw: "not a number", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidPhone)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
