package security_test

import (
	"context"
	"testing"

	"github.com/abdidvp/luaguard/internal/adapters/outbound/luau"
	"github.com/abdidvp/luaguard/internal/adapters/outbound/rules"
	"github.com/abdidvp/luaguard/internal/domain"
	"github.com/abdidvp/luaguard/internal/domain/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyze(t *testing.T, src string, strict bool) domain.CheckerResult {
	t.Helper()
	rs, err := rules.New().Load("")
	require.NoError(t, err)
	parsed, err := luau.New().Parse(context.Background(), src)
	require.NoError(t, err)
	require.True(t, parsed.OK(), "fixture must parse: %v", parsed.Errors)

	req := domain.ValidationRequest{ScriptCode: src, StrictMode: strict}
	res, err := security.New(rs).Check(context.Background(), domain.NewScript(req, parsed, nil))
	require.NoError(t, err)
	return res
}

func findingByRule(res domain.CheckerResult, id string) *domain.Finding {
	for i := range res.Findings {
		if res.Findings[i].RuleID == id {
			return &res.Findings[i]
		}
	}
	return nil
}

func TestAnalyzer_CleanScript(t *testing.T) {
	res := analyze(t, `local Players = game:GetService("Players")
Players.PlayerAdded:Connect(function(player)
	print("welcome", player.Name)
end)
`, false)

	assert.Empty(t, res.Findings)
	assert.Equal(t, domain.CheckPass, res.Status)
	assert.Equal(t, 100.0, res.Score)
	assert.Equal(t, security.ThreatLow, res.Label)
	for _, flag := range domain.SecurityFlags {
		assert.True(t, res.Flags[flag], flag)
	}
}

func TestAnalyzer_Loadstring(t *testing.T) {
	res := analyze(t, "local code = getCode()\nloadstring(code)()\n", false)

	f := findingByRule(res, "SEC001")
	require.NotNil(t, f)
	assert.Equal(t, domain.SeverityCritical, f.Severity)
	assert.Equal(t, "code_injection", f.Category)
	assert.Equal(t, 2, f.Line)
	assert.Equal(t, 1, f.Column)
	assert.InDelta(t, 9.8, f.CVSS, 0.001)

	assert.Equal(t, domain.CheckFail, res.Status)
	assert.Equal(t, security.ThreatCritical, res.Label)
	assert.InDelta(t, 2.0, res.Score, 0.001)
	assert.False(t, res.Flags["no_dangerous_functions"])
	assert.True(t, res.Flags["no_hardcoded_credentials"])
}

func TestAnalyzer_PatternInStringOrCommentIgnored(t *testing.T) {
	res := analyze(t, "-- never call loadstring(x)\nprint(\"loadstring(x) is banned\")\n", false)
	assert.Nil(t, findingByRule(res, "SEC001"))
}

func TestAnalyzer_HardcodedCredentials(t *testing.T) {
	res := analyze(t, `local API_KEY = "sk-abcdefghijklmnopqrstuvwx"
local password = "hunter22"
`, false)

	assert.NotNil(t, findingByRule(res, "SEC008"))
	assert.NotNil(t, findingByRule(res, "SEC009"))
	assert.False(t, res.Flags["no_hardcoded_credentials"])
}

func TestAnalyzer_RemoteWithoutGuards(t *testing.T) {
	res := analyze(t, `local remote = game.ReplicatedStorage.Buy
remote.OnServerEvent:Connect(function(player, item)
	grant(player, item)
end)
`, false)

	validation := findingByRule(res, "SEC100")
	require.NotNil(t, validation)
	assert.Equal(t, 2, validation.Line)
	assert.NotNil(t, findingByRule(res, "SEC101"))
	assert.False(t, res.Flags["input_validation_present"])
	assert.False(t, res.Flags["rate_limiting_present"])
}

func TestAnalyzer_RemoteWithGuards(t *testing.T) {
	res := analyze(t, `local lastCall = {}
remote.OnServerEvent:Connect(function(player, item)
	if typeof(item) ~= "string" then return end
	local now = os.clock()
	if now - (lastCall[player] or 0) < 1 then return end
	lastCall[player] = now
	grant(player, item)
end)
`, false)

	assert.Empty(t, res.Findings)
	assert.True(t, res.Flags["input_validation_present"])
	assert.True(t, res.Flags["rate_limiting_present"])
}

func TestAnalyzer_StrictModeEscalatesHigh(t *testing.T) {
	src := "local env = getfenv(1)\n"
	normal := analyze(t, src, false)
	strict := analyze(t, src, true)

	require.NotNil(t, findingByRule(normal, "SEC002"))
	assert.Equal(t, domain.SeverityHigh, findingByRule(normal, "SEC002").Severity)
	assert.Equal(t, domain.CheckWarn, normal.Status)

	assert.Equal(t, domain.SeverityCritical, findingByRule(strict, "SEC002").Severity)
	assert.Equal(t, domain.CheckFail, strict.Status)
}

func TestAnalyzer_OverlappingMatchesAllReported(t *testing.T) {
	res := analyze(t, "setfenv(1, getfenv(loadstring(x)))\n", false)

	assert.NotNil(t, findingByRule(res, "SEC001"))
	assert.NotNil(t, findingByRule(res, "SEC002"))
	assert.InDelta(t, 9.8, res.Metrics["risk_score"], 0.001, "only the top score on a line counts")
}

func TestAnalyzer_RejectsUnparseable(t *testing.T) {
	rs, err := rules.New().Load("")
	require.NoError(t, err)
	parsed, err := luau.New().Parse(context.Background(), "function (")
	require.NoError(t, err)

	_, err = security.New(rs).Check(context.Background(), domain.NewScript(domain.ValidationRequest{}, parsed, nil))
	assert.ErrorIs(t, err, domain.ErrUnparseable)
}

func TestRiskScore(t *testing.T) {
	tests := []struct {
		name     string
		findings []domain.Finding
		want     float64
	}{
		{"none", nil, 0},
		{"single", []domain.Finding{{Line: 1, CVSS: 5.3}}, 5.3},
		{"combined", []domain.Finding{{Line: 1, CVSS: 8.0}, {Line: 2, CVSS: 5.0}, {Line: 3, CVSS: 3.0}}, 8.8},
		{"same line keeps max", []domain.Finding{{Line: 4, CVSS: 8.1}, {Line: 4, CVSS: 9.8}}, 9.8},
		{"capped", []domain.Finding{{Line: 1, CVSS: 9.8}, {Line: 2, CVSS: 9.8}, {Line: 3, CVSS: 9.8}}, 10.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, security.RiskScore(tt.findings), 0.001)
		})
	}
}

func TestThreatLevel(t *testing.T) {
	assert.Equal(t, security.ThreatCritical, security.ThreatLevel(9.0))
	assert.Equal(t, security.ThreatHigh, security.ThreatLevel(8.99))
	assert.Equal(t, security.ThreatHigh, security.ThreatLevel(7.0))
	assert.Equal(t, security.ThreatMedium, security.ThreatLevel(4.0))
	assert.Equal(t, security.ThreatLow, security.ThreatLevel(3.9))
	assert.Equal(t, security.ThreatLow, security.ThreatLevel(0))
}
