package rate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOf(t *testing.T) {
	cases := []struct {
		name      string
		now, last float64
		want      float64
	}{
		{"both zero", 0, 0, 0},
		{"zero baseline", 5, 0, 0},
		{"doubling", 2, 1, 1},
		{"to zero", 0, 4, -1},
		{"no change", 10, 10, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Of(tc.now, tc.last))
		})
	}
}
