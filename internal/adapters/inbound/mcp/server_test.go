package mcp_test

import (
	"testing"

	mcpadapter "github.com/abdidvp/luaguard/internal/adapters/inbound/mcp"
	"github.com/abdidvp/luaguard/internal/adapters/outbound/luau"
	"github.com/abdidvp/luaguard/internal/adapters/outbound/rules"
	"github.com/abdidvp/luaguard/internal/application"
	"github.com/abdidvp/luaguard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLuaguardMCPServer(t *testing.T) {
	rs, err := rules.New().Load("")
	require.NoError(t, err)
	engine := application.NewValidationService(domain.DefaultConfig(), rs, luau.New())

	s := mcpadapter.NewLuaguardMCPServer(engine, rs, "test")
	require.NotNil(t, s)

	tools := s.ListTools()
	require.NotNil(t, tools)

	expectedTools := []string{
		"luaguard_validate",
		"luaguard_batch_validate",
		"luaguard_rules",
	}

	for _, name := range expectedTools {
		_, exists := tools[name]
		assert.True(t, exists, "tool %q should be registered", name)
	}

	assert.Len(t, tools, len(expectedTools), "should have exactly %d tools", len(expectedTools))
}
