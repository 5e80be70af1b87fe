package tui_test

import (
	"testing"

	"github.com/abdidvp/luaguard/internal/adapters/outbound/tui"
	"github.com/abdidvp/luaguard/internal/domain"
	"github.com/stretchr/testify/assert"
)

func sampleBatch() *domain.BatchResult {
	items := []domain.BatchItem{
		{Index: 0, ScriptName: "a.luau", Status: domain.StatusPassed, Report: &domain.Report{OverallScore: 97.5}},
		{Index: 1, ScriptName: "b.luau", Status: domain.StatusFailed, Report: &domain.Report{
			OverallScore:   31,
			CriticalIssues: []string{"[security] SEC001 line 2: loadstring executes arbitrary code"},
			Warnings:       []string{"[syntax] SYN011 line 5: wait() is deprecated"},
		}},
		{Index: 2, ScriptName: "c.luau", Status: domain.StatusError, Error: &domain.ItemError{
			Kind: domain.KindInput, Code: domain.CodeScriptTooLarge, Message: "script \"c.luau\" is too large",
		}},
	}
	return &domain.BatchResult{Items: items, Stats: domain.ComputeStats(items)}
}

func TestRenderBatch_Summary(t *testing.T) {
	output := tui.RenderBatch(sampleBatch())
	assert.Contains(t, output, "3 scripts")
	assert.Contains(t, output, "1 passed")
	assert.Contains(t, output, "1 failed")
	assert.Contains(t, output, "1 errored")
	assert.Contains(t, output, "average score 64.3")
}

func TestRenderBatch_ItemRows(t *testing.T) {
	output := tui.RenderBatch(sampleBatch())
	assert.Contains(t, output, "a.luau")
	assert.Contains(t, output, " 97.5")
	assert.Contains(t, output, "PASSED")
	assert.Contains(t, output, "ERROR")
}

func TestRenderBatch_Details(t *testing.T) {
	output := tui.RenderBatch(sampleBatch())
	assert.Contains(t, output, "SEC001 line 2")
	assert.Contains(t, output, "wait() is deprecated")
	assert.Contains(t, output, "is too large")
	assert.Contains(t, output, "(2)")
}
