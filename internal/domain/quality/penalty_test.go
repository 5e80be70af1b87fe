package quality

import (
	"testing"

	"github.com/abdidvp/luaguard/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestOverrunCredit(t *testing.T) {
	tests := []struct {
		name         string
		value, limit int
		want         float64
	}{
		{"within limit", 3, 10, 1},
		{"at limit", 10, 10, 1},
		{"double the limit", 20, 10, 0.75},
		{"five times the limit", 50, 10, 0},
		{"far past the limit", 80, 10, 0},
		{"disabled", 100, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, overrunCredit(tt.value, tt.limit), 0.0001)
		})
	}
}

func TestOverrunSeverity(t *testing.T) {
	assert.Equal(t, domain.SeverityLow, overrunSeverity(11, 10))
	assert.Equal(t, domain.SeverityMedium, overrunSeverity(20, 10))
	assert.Equal(t, domain.SeverityLow, overrunSeverity(5, 0))
}

func TestClampSeverity(t *testing.T) {
	assert.Equal(t, domain.SeverityMedium, clampSeverity(domain.SeverityCritical))
	assert.Equal(t, domain.SeverityMedium, clampSeverity(domain.SeverityHigh))
	assert.Equal(t, domain.SeverityLow, clampSeverity(domain.SeverityLow))
}
