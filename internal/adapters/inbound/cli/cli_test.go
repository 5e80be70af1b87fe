package cli_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abdidvp/luaguard/internal/adapters/inbound/cli"
	"github.com/abdidvp/luaguard/internal/adapters/outbound/config"
	"github.com/abdidvp/luaguard/internal/adapters/outbound/rules"
	"github.com/abdidvp/luaguard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cleanScript = `local Players = game:GetService("Players")
Players.PlayerAdded:Connect(function(player)
	task.wait(1)
	print(player.Name)
end)
`

const injection = "local f = loadstring(\"return 1\")\nprint(f())\n"

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmdForTest()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "luaguard dev (none)\n", out)
}

func TestValidateCommand_PassingFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "Greeter.luau", cleanScript)

	out, err := run(t, "", "validate", path, "--type", "syntax", "--format", "json", "--dir", dir)
	require.NoError(t, err)

	var report domain.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, domain.StatusPassed, report.OverallStatus)
	assert.Equal(t, filepath.ToSlash(path), report.ScriptName)
}

func TestValidateCommand_FailingFileExitsOne(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "Inject.lua", injection)

	out, err := run(t, "", "validate", path, "--format", "json", "--dir", dir)
	require.Error(t, err)
	assert.Equal(t, cli.ExitFailed, cli.ExitCode(err))
	assert.True(t, cli.Silent(err))
	assert.Contains(t, out, "SEC001")
	assert.Contains(t, out, `"deploymentReady": false`)
}

func TestValidateCommand_Directory(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	writeFile(t, src, "a.lua", cleanScript)
	writeFile(t, src, "nested/b.luau", cleanScript)
	writeFile(t, src, "README.md", "not a script")

	out, err := run(t, "", "validate", src, "--type", "syntax", "--format", "json", "--dir", dir)
	require.NoError(t, err)

	var batch domain.BatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &batch))
	require.Len(t, batch.Items, 2)
	assert.True(t, strings.HasSuffix(batch.Items[0].ScriptName, "src/a.lua"))
	assert.True(t, strings.HasSuffix(batch.Items[1].ScriptName, "src/nested/b.luau"))
	assert.Equal(t, 2, batch.Stats.Passed)
}

func TestValidateCommand_Stdin(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, cleanScript, "validate", "--stdin", "--name", "Pasted.lua", "--type", "syntax", "--format", "json", "--dir", dir)
	require.NoError(t, err)

	var report domain.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "Pasted.lua", report.ScriptName)
}

func TestValidateCommand_TextAndSARIF(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "Inject.lua", injection)

	text, _ := run(t, "", "validate", path, "--dir", dir)
	assert.Contains(t, text, "luaguard")
	assert.Contains(t, text, "SEC001")

	sarif, _ := run(t, "", "validate", path, "--format", "sarif", "--dir", dir)
	assert.Contains(t, sarif, `"version": "2.1.0"`)
	assert.Contains(t, sarif, `"ruleId": "SEC001"`)
}

func TestValidateCommand_InputErrorsExitTwo(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.lua", cleanScript)
	empty := t.TempDir()

	tests := []struct {
		name  string
		stdin string
		args  []string
	}{
		{"unknown grade", cleanScript, []string{"validate", "--stdin", "--grade", "kindergarten"}},
		{"educational without audience", cleanScript, []string{"validate", "--stdin", "--type", "educational"}},
		{"unknown format", "", []string{"validate", path, "--format", "xml"}},
		{"missing path", "", []string{"validate", filepath.Join(dir, "missing.lua")}},
		{"no scripts", "", []string{"validate", empty}},
		{"stdin with paths", cleanScript, []string{"validate", "--stdin", path}},
		{"unknown flag", "", []string{"validate", "--colour"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.stdin, append(tt.args, "--dir", dir)...)
			require.Error(t, err)
			assert.Equal(t, cli.ExitInput, cli.ExitCode(err), "error: %v", err)
		})
	}
}

func TestValidateCommand_OversizedScript(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".luaguard.yaml", "max_script_bytes: 16\n")

	_, err := run(t, cleanScript, "validate", "--stdin", "--dir", dir)
	require.Error(t, err)
	assert.Equal(t, cli.ExitInput, cli.ExitCode(err))
	assert.Contains(t, err.Error(), "limit 16")
}

func TestValidateCommand_BrokenConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".luaguard.yaml", "weights:\n  speed: 1.0\n")

	_, err := run(t, cleanScript, "validate", "--stdin", "--dir", dir)
	require.Error(t, err)
	assert.Equal(t, cli.ExitInput, cli.ExitCode(err))
	assert.Contains(t, err.Error(), "loading config")
}

func TestValidateCommand_CacheWritten(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.lua", cleanScript)

	_, err := run(t, "", "validate", path, "--type", "syntax", "--dir", dir)
	require.NoError(t, err)
	cached, err := filepath.Glob(filepath.Join(dir, ".luaguard", "cache", "*.json"))
	require.NoError(t, err)
	assert.Len(t, cached, 1)

	_, err = run(t, "", "validate", path, "--type", "syntax", "--dir", filepath.Join(dir, "other"), "--no-cache")
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(dir, "other", ".luaguard", "cache"))
}

func TestHistoryCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.lua", cleanScript)

	out, err := run(t, "", "history", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No validation history found.")

	_, err = run(t, "", "validate", path, "--type", "syntax", "--history", "--dir", dir)
	require.NoError(t, err)

	out, err = run(t, "", "history", "--json", "--dir", dir)
	require.NoError(t, err)
	var entries []domain.HistoryEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.ToSlash(path), entries[0].ScriptName)
	assert.Equal(t, domain.StatusPassed, entries[0].Status)

	out, err = run(t, "", "history", "--json", "--script", "other.lua", "--dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	reqs := `{"requests": [
		{"scriptCode": "local f = loadstring(\"x\")", "scriptName": "one.lua", "validationType": "security"},
		{"scriptCode": "print(1)", "scriptName": "two.lua", "validationType": "syntax"}
	]}`
	path := writeFile(t, dir, "requests.json", reqs)

	out, err := run(t, "", "batch", path, "--format", "json", "--dir", dir)
	require.Error(t, err)
	assert.Equal(t, cli.ExitFailed, cli.ExitCode(err))

	var batch domain.BatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &batch))
	require.Len(t, batch.Items, 2)
	assert.Equal(t, "one.lua", batch.Items[0].ScriptName)
	assert.Equal(t, domain.StatusFailed, batch.Items[0].Status)
	assert.Equal(t, domain.StatusPassed, batch.Items[1].Status)
}

func TestBatchCommand_Stdin(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, `[{"scriptCode": "print(1)", "validationType": "syntax"}]`, "batch", "-", "--format", "json", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, `"total": 1`)
}

func TestBatchCommand_InputErrors(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.json", `[{"scriptCode": "print(1)", "gradeLevel": "nursery"}]`)
	envelope := writeFile(t, dir, "envelope.json", `{"items": []}`)

	for _, args := range [][]string{
		{"batch", bad},
		{"batch", envelope},
		{"batch", filepath.Join(dir, "missing.json")},
		{"batch"},
	} {
		_, err := run(t, "", append(args, "--dir", dir)...)
		require.Error(t, err, "args %v", args)
		assert.Equal(t, cli.ExitInput, cli.ExitCode(err), "args %v: %v", args, err)
	}
}

func TestBatchCommand_RejectedItemKeepsSiblings(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "mixed.json", `[
		{"scriptName": "one.lua", "scriptCode": "print(1)", "validationType": "syntax"},
		{"scriptName": "two.lua", "scriptCode": "print(2)", "gradeLevel": "kindergarten"},
		{"scriptName": "three.lua", "scriptCode": "print(3)", "validationType": "syntax"}
	]`)

	out, err := run(t, "", "batch", path, "--format", "json", "--dir", dir)
	assert.Equal(t, cli.ExitInput, cli.ExitCode(err))

	var batch domain.BatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &batch))
	require.Len(t, batch.Items, 3)
	for i, name := range []string{"one.lua", "two.lua", "three.lua"} {
		assert.Equal(t, i, batch.Items[i].Index)
		assert.Equal(t, name, batch.Items[i].ScriptName)
	}
	assert.NotNil(t, batch.Items[0].Report)
	assert.NotNil(t, batch.Items[2].Report)
	require.NotNil(t, batch.Items[1].Error)
	assert.Equal(t, domain.KindInput, batch.Items[1].Error.Kind)
	assert.Equal(t, domain.CodeSchema, batch.Items[1].Error.Code)
	assert.Equal(t, 3, batch.Stats.Total)
	assert.Equal(t, 1, batch.Stats.Errored)
}

func TestRulesCommand(t *testing.T) {
	dir := t.TempDir()
	rs, err := rules.New().Load("")
	require.NoError(t, err)

	out, err := run(t, "", "rules", "--json", "--section", "security", "--dir", dir)
	require.NoError(t, err)
	var entries []rules.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	assert.Len(t, entries, len(rs.Security))

	out, err = run(t, "", "rules", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "rules "+rs.Version)
	assert.Contains(t, out, "SEC001")
	assert.Contains(t, out, "POL-S01")

	_, err = run(t, "", "rules", "--section", "network", "--dir", dir)
	assert.Equal(t, cli.ExitInput, cli.ExitCode(err))
}

func TestInitCmd_WritesLoadableDefaults(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, "", "init", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Created .luaguard.yaml")

	data, err := os.ReadFile(filepath.Join(dir, ".luaguard.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "weights:")
	assert.Contains(t, string(data), "checker_timeout: 5s")

	cfg, err := config.New().Load(dir)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultConfig(), cfg)
}

func TestInitCmd_FailsIfExists(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".luaguard.yaml", "existing")

	_, err := run(t, "", "init", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = run(t, "", "init", dir, "--force")
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, ".luaguard.yaml"))
	require.NoError(t, err)
	assert.NotEqual(t, "existing", string(data))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, cli.ExitOK, cli.ExitCode(nil))
	assert.Equal(t, cli.ExitInput, cli.ExitCode(domain.NewInputError(domain.CodeInvalidField, "bad")))
	assert.Equal(t, cli.ExitSystem, cli.ExitCode(errors.New("disk on fire")))
	assert.Equal(t, cli.ExitSystem, cli.ExitCode(domain.NewSystemError(domain.CodeEnginePanic, "boom", nil)))
}
