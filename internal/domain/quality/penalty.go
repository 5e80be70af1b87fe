package quality

import "github.com/abdidvp/luaguard/internal/domain"

// zeroCreditAt is the multiple of a limit at which a function earns
// nothing for that measure.
const zeroCreditAt = 5

// overrunCredit grades value against limit. Anything within the limit earns
// 1; credit then falls in a straight line to 0 at zeroCreditAt*limit. A
// non-positive limit disables the measure.
func overrunCredit(value, limit int) float64 {
	if limit <= 0 || value <= limit {
		return 1
	}
	return max(0, 1-float64(value-limit)/float64(limit*(zeroCreditAt-1)))
}

// overrunSeverity is medium once value reaches twice limit, low below.
// Quality findings are advisory and never rank above medium.
func overrunSeverity(value, limit int) domain.Severity {
	if limit > 0 && value >= 2*limit {
		return domain.SeverityMedium
	}
	return domain.SeverityLow
}

// clampSeverity caps s at medium.
func clampSeverity(s domain.Severity) domain.Severity {
	if s.Rank() > domain.SeverityMedium.Rank() {
		return domain.SeverityMedium
	}
	return s
}
