package transit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestColdStart(t *testing.T) {
	t.Parallel()

	last := time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)

	tests := []struct {
		name  string
		stock float64
		hours float64
	}{
		{"very large", 1200, 18},
		{"large", 700, 21},
		{"typical", 400, 24},
		{"small", 150, 28},
		{"boundary 1000", 1000, 21},
		{"boundary 600", 600, 24},
		{"boundary 200", 200, 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ColdStart(last, tt.stock)
			assert.InDelta(t, tt.hours, got.TransitHours, 1e-9)
			assert.Equal(t, last.Add(time.Duration(tt.hours*float64(time.Hour))), got.At)
			assert.NotEmpty(t, got.Reason)
		})
	}
}
