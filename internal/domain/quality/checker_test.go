package quality_test

import (
	"context"
	"strings"
	"testing"

	"github.com/abdidvp/luaguard/internal/adapters/outbound/luau"
	"github.com/abdidvp/luaguard/internal/domain"
	"github.com/abdidvp/luaguard/internal/domain/quality"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkQuality(t *testing.T, src string) domain.CheckerResult {
	t.Helper()
	parsed, err := luau.New().Parse(context.Background(), src)
	require.NoError(t, err)
	require.True(t, parsed.OK(), "fixture must parse: %v", parsed.Errors)

	c := quality.New(domain.DefaultQualityProfile())
	res, err := c.Check(context.Background(), domain.NewScript(domain.ValidationRequest{ScriptCode: src}, parsed, nil))
	require.NoError(t, err)
	return res
}

const documented = `--!strict
-- Tracks coins collected by each player.
local CoinTracker = {}

local MAX_COINS = 100

-- Adds coins for a player, capped at MAX_COINS.
function CoinTracker.addCoins(balance, amount)
	local total = balance + amount
	return math.min(total, MAX_COINS)
end

-- Returns true when the player can afford the price.
function CoinTracker.canAfford(balance, price)
	return balance >= price
end

return CoinTracker
`

func TestChecker_DocumentedScriptIsExcellent(t *testing.T) {
	res := checkQuality(t, documented)

	assert.Equal(t, domain.CheckPass, res.Status)
	assert.Empty(t, res.Findings)
	assert.Equal(t, 100.0, res.Score)
	assert.Equal(t, quality.TierExcellent, res.Label)
	require.Len(t, res.SubMetrics, 4)

	points := 0
	for _, sm := range res.SubMetrics {
		points += sm.Points
	}
	assert.Equal(t, 100, points)
}

func TestChecker_ComplexFunction(t *testing.T) {
	var b strings.Builder
	b.WriteString("-- Classifies a value.\nlocal function classify(n)\n")
	for i := 0; i < 24; i++ {
		b.WriteString("\tif n == 1 then return 1 end\n")
	}
	b.WriteString("\treturn 0\nend\n")

	res := checkQuality(t, b.String())

	var complexity *domain.Finding
	for i := range res.Findings {
		if res.Findings[i].RuleID == "QUA001" {
			complexity = &res.Findings[i]
		}
	}
	require.NotNil(t, complexity)
	assert.Equal(t, domain.SeverityMedium, complexity.Severity)
	assert.Equal(t, 25.0, res.Metrics["max_complexity"])
	assert.Equal(t, domain.CheckWarn, res.Status)
	assert.Less(t, res.Score, 100.0)
}

func TestChecker_NamingFindings(t *testing.T) {
	res := checkQuality(t, `-- doc
local player_name = "a"
local q = 1
local tempData = {}
local playerScore = 0
`)
	var names []string
	for _, f := range res.Findings {
		if f.RuleID == "QUA010" {
			names = append(names, f.Message)
			assert.Equal(t, domain.SeverityLow, f.Severity)
		}
	}
	require.Len(t, names, 3)
	assert.Contains(t, names[0], "player_name")
	assert.Contains(t, names[1], `"q"`)
	assert.Contains(t, names[2], "tempData")
}

func TestChecker_NeverFails(t *testing.T) {
	var b strings.Builder
	b.WriteString("local function huge(a, b, c, d, e, f, g, h, i, j, k, l)\n")
	for i := 0; i < 400; i++ {
		b.WriteString("\tif a and b or c then if d then if e then if f then if g then if h then print(1) end end end end end end\n")
	}
	b.WriteString("end\n")

	res := checkQuality(t, b.String())
	assert.NotEqual(t, domain.CheckFail, res.Status)
	for _, f := range res.Findings {
		assert.LessOrEqual(t, f.Severity.Rank(), domain.SeverityMedium.Rank(), f.RuleID)
	}
	assert.Equal(t, quality.TierUnacceptable, res.Label)
}

func TestChecker_RejectsUnparseable(t *testing.T) {
	parsed, err := luau.New().Parse(context.Background(), "local x = (")
	require.NoError(t, err)

	_, err = quality.New(domain.DefaultQualityProfile()).Check(context.Background(),
		domain.NewScript(domain.ValidationRequest{}, parsed, nil))
	assert.ErrorIs(t, err, domain.ErrUnparseable)
}

func TestTier(t *testing.T) {
	assert.Equal(t, quality.TierExcellent, quality.Tier(90))
	assert.Equal(t, quality.TierGood, quality.Tier(89.9))
	assert.Equal(t, quality.TierGood, quality.Tier(75))
	assert.Equal(t, quality.TierFair, quality.Tier(60))
	assert.Equal(t, quality.TierPoor, quality.Tier(40))
	assert.Equal(t, quality.TierUnacceptable, quality.Tier(39.9))
}

func TestNamingProblem(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"playerScore", ""},
		{"PlayerService", ""},
		{"MAX_PLAYERS", ""},
		{"_private", ""},
		{"i", ""},
		{"dt", ""},
		{"q", "single-letter name"},
		{"player_name", "snake_case name (use camelCase)"},
		{"tempData", "vague name"},
		{"data", "vague name"},
		{"playerData", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, quality.NamingProblem(tt.name))
		})
	}
}
