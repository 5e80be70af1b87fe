package luau_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/abdidvp/luaguard/internal/adapters/outbound/luau"
	"github.com/abdidvp/luaguard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *domain.ParsedScript {
	t.Helper()
	ps, err := luau.New().Parse(context.Background(), src)
	require.NoError(t, err)
	return ps
}

func TestParser_CleanScript(t *testing.T) {
	src := `-- Adds two numbers.
local function add(a, b)
	return a + b
end

local total = add(1, 2)
print(total)
`
	ps := parse(t, src)
	require.True(t, ps.OK(), "errors: %v", ps.Errors)

	require.Len(t, ps.Functions, 1)
	fn := ps.Functions[0]
	assert.Equal(t, "add", fn.Name)
	assert.Equal(t, 2, fn.LineStart)
	assert.Equal(t, 4, fn.LineEnd)
	assert.Equal(t, []string{"a", "b"}, fn.Params)
	assert.True(t, fn.HasDocComment)
	assert.True(t, fn.Local)
	assert.Equal(t, 1, fn.Complexity)
	assert.Equal(t, 1, ps.CommentLines)
}

func TestParser_MaskedViews(t *testing.T) {
	src := `local s = "loadstring" -- loadstring here`
	ps := parse(t, src)
	require.True(t, ps.OK())

	assert.Equal(t, src, ps.Lines[0])
	assert.NotContains(t, ps.CodeLines[0], "loadstring")
	assert.Contains(t, ps.TextLines[0], `"loadstring"`)
	assert.NotContains(t, ps.TextLines[0], "here")
	assert.Len(t, ps.CodeLines[0], len(src), "masking keeps columns aligned")
}

func TestParser_LongStringsAndComments(t *testing.T) {
	src := `--[==[
block comment with end inside
]==]
local s = [[
function not code
]]
print(s)
`
	ps := parse(t, src)
	require.True(t, ps.OK(), "errors: %v", ps.Errors)
	assert.Empty(t, ps.Functions)
	assert.Equal(t, 3, ps.CommentLines)
}

func TestParser_MissingEnd(t *testing.T) {
	src := `local function broken()
	if true then
		print("x")
end
`
	ps := parse(t, src)
	require.Len(t, ps.Errors, 1)
	assert.Equal(t, 1, ps.Errors[0].Line)
	assert.Contains(t, ps.Errors[0].Message, "'end' expected")
	assert.Contains(t, ps.Errors[0].Message, "'function'")
}

func TestParser_StrayEnd(t *testing.T) {
	ps := parse(t, "print(1)\nend\n")
	require.Len(t, ps.Errors, 1)
	assert.Equal(t, 2, ps.Errors[0].Line)
}

func TestParser_MismatchedBracket(t *testing.T) {
	ps := parse(t, "local t = { 1, 2 )\n")
	require.Len(t, ps.Errors, 1)
	assert.Contains(t, ps.Errors[0].Message, "'}' expected")
}

func TestParser_UnfinishedString(t *testing.T) {
	ps := parse(t, "local s = \"abc\nprint(s)\n")
	require.Len(t, ps.Errors, 1)
	assert.Equal(t, "unfinished string", ps.Errors[0].Message)
	assert.Equal(t, 1, ps.Errors[0].Line)
	assert.Equal(t, 11, ps.Errors[0].Column)
}

func TestParser_IfExpression(t *testing.T) {
	src := `local label = if score > 10 then "high" else "low"
local function pick(x)
	return if x then 1 elseif x == nil then 2 else 3
end
`
	ps := parse(t, src)
	require.True(t, ps.OK(), "errors: %v", ps.Errors)
	require.Len(t, ps.Functions, 1)
	assert.Equal(t, 3, ps.Functions[0].Complexity)
}

func TestParser_ComplexityAndNesting(t *testing.T) {
	src := `function Module.run(self, items)
	for _, item in ipairs(items) do
		if item.ok and item.ready then
			while item.busy do
				task.wait()
			end
		elseif item.failed or item.lost then
			repeat
				item.retry()
			until item.ok
		end
	end
end
`
	ps := parse(t, src)
	require.True(t, ps.OK(), "errors: %v", ps.Errors)
	require.Len(t, ps.Functions, 1)
	fn := ps.Functions[0]
	assert.Equal(t, "Module.run", fn.Name)
	// 1 + for + if + and + while + elseif + or + repeat
	assert.Equal(t, 8, fn.Complexity)
	assert.Equal(t, 3, fn.MaxNesting)
	assert.False(t, fn.Local)

	require.Len(t, ps.Loops, 3)
	assert.Equal(t, "for", ps.Loops[0].Kind)
	assert.Equal(t, 2, ps.Loops[0].LineStart)
	assert.Equal(t, 12, ps.Loops[0].LineEnd)
	assert.Equal(t, "while", ps.Loops[1].Kind)
	assert.Equal(t, "while item.busy do", ps.Loops[1].Header)
	assert.Equal(t, "repeat", ps.Loops[2].Kind)
	assert.Equal(t, 10, ps.Loops[2].LineEnd)
}

func TestParser_NestedFunctionsDoNotLeakComplexity(t *testing.T) {
	src := `local function outer()
	local inner = function(x)
		if x then return 1 end
		return 0
	end
	return inner
end
`
	ps := parse(t, src)
	require.True(t, ps.OK(), "errors: %v", ps.Errors)
	require.Len(t, ps.Functions, 2)
	assert.Equal(t, "outer", ps.Functions[0].Name)
	assert.Equal(t, 1, ps.Functions[0].Complexity)
	assert.Equal(t, "inner", ps.Functions[1].Name)
	assert.Equal(t, 2, ps.Functions[1].Complexity)
}

func TestParser_Identifiers(t *testing.T) {
	src := `local MAX_PLAYERS = 10
local count: number, name: string = 0, "x"
local function greet(player: Player, message)
end
for i = 1, 3 do end
for key, value in pairs({}) do end
`
	ps := parse(t, src)
	require.True(t, ps.OK(), "errors: %v", ps.Errors)

	byName := map[string]domain.Identifier{}
	for _, id := range ps.Identifiers {
		byName[id.Name] = id
	}
	for _, name := range []string{"MAX_PLAYERS", "count", "name", "greet", "player", "message", "i", "key", "value"} {
		assert.Contains(t, byName, name)
	}
	assert.NotContains(t, byName, "number")
	assert.NotContains(t, byName, "Player")
	assert.True(t, byName["MAX_PLAYERS"].Constant)
	assert.False(t, byName["count"].Constant)
	assert.Equal(t, domain.IdentParam, byName["player"].Kind)
	assert.Equal(t, domain.IdentFunction, byName["greet"].Kind)
}

func TestParser_LuauSyntax(t *testing.T) {
	src := "type Point = { x: number, y: number }\n" +
		"local p: Point = { x = 1, y = 2 }\n" +
		"p.x += 1\n" +
		"local msg = `at {p.x}, {p.y}`\n" +
		"local n = 0x1F + 1e-3\n" +
		"for _ = 1, 2 do continue end\n"
	ps := parse(t, src)
	assert.True(t, ps.OK(), "errors: %v", ps.Errors)
}

func TestParser_EmptyAndCommentOnly(t *testing.T) {
	ps := parse(t, "")
	assert.False(t, ps.OK())
	assert.Empty(t, ps.Errors)

	ps = parse(t, "-- nothing here\n--[[ or here ]]\n")
	assert.False(t, ps.OK())
	assert.Empty(t, ps.Errors)
	assert.Equal(t, 2, ps.CommentLines)
	assert.Len(t, ps.Comments, 2)
}

func TestParser_CRLF(t *testing.T) {
	ps := parse(t, "print(1)\r\nprint(2)\r\n")
	require.True(t, ps.OK())
	assert.Equal(t, "print(1)", ps.Lines[0])
	assert.Equal(t, 2, ps.CodeLineN)
}

func TestParser_DeepNestingIsLinear(t *testing.T) {
	src := "x = " + strings.Repeat("(", 80000) + strings.Repeat(" a or", 32000)

	start := time.Now()
	ps := parse(t, src)
	assert.Less(t, time.Since(start), time.Second)
	require.False(t, ps.OK())
	assert.Contains(t, ps.Errors[0].Message, "')' expected")
}

func TestParser_DeepNestingKeepsFunctionMetrics(t *testing.T) {
	src := "local function f(a)\n" + strings.Repeat("(", 200) + "a or a" + strings.Repeat(")", 200) + "\n" +
		"if a then\n" + strings.Repeat("(", 50) + "a and a" + strings.Repeat(")", 50) + "\nend\nend\n"
	ps := parse(t, src)
	require.True(t, ps.OK(), "%v", ps.Errors)
	require.Len(t, ps.Functions, 1)
	assert.Equal(t, 4, ps.Functions[0].Complexity)
	assert.Equal(t, 1, ps.Functions[0].MaxNesting)
}

func TestParser_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ps, err := luau.New().Parse(ctx, "print(1)")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, ps)
}
