package rent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinimumBalance(t *testing.T) {
	r := Default()

	tests := []struct {
		name    string
		dataLen uint64
		want    uint64
	}{
		{"empty account", 0, 890_880},
		{"scoring mint", 194, 2_241_120},
		{"token account", 165, 2_039_280},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.MinimumBalance(tt.dataLen))
		})
	}
}

func TestCustomThreshold(t *testing.T) {
	r := Rent{LamportsPerByteYear: 10, ExemptionThreshold: 1.0}
	assert.Equal(t, uint64((128+72)*10), r.MinimumBalance(72))
}
