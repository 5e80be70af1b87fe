package e2e_test

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abdidvp/luaguard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build binary before running tests
	dir, err := os.MkdirTemp("", "luaguard-e2e")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	binaryPath = filepath.Join(dir, "luaguard")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/luaguard")
	if out, err := cmd.CombinedOutput(); err != nil {
		panic("build failed: " + string(out))
	}

	os.Exit(m.Run())
}

func fixturePath(name string) string {
	abs, _ := filepath.Abs(filepath.Join("../../testdata/luau", name))
	return abs
}

// run executes the binary with its state directory in a temp dir so fixtures
// stay untouched.
func run(t *testing.T, stdin string, args ...string) (string, int) {
	t.Helper()
	cmd := exec.Command(binaryPath, append(args, "--dir", t.TempDir())...)
	cmd.Stdin = strings.NewReader(stdin)
	out, err := cmd.Output()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
	}
	return string(out), exitCode
}

// --- Validate Tests ---

func TestE2E_LessonPasses(t *testing.T) {
	out, code := run(t, "", "validate", fixturePath("lesson.luau"),
		"--grade", "elementary", "--subject", "math",
		"--objective", "Add fractions with unlike denominators",
		"--format", "json")
	assert.Equal(t, 0, code)

	var report domain.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, domain.StatusPassed, report.OverallStatus)
	assert.True(t, report.DeploymentReady)
	assert.True(t, report.EducationalReady)
	assert.True(t, report.PlatformCompliant)
	assert.Len(t, report.Results, 5)
}

func TestE2E_InjectionFails(t *testing.T) {
	out, code := run(t, "", "validate", fixturePath("injection.lua"), "--format", "json")
	assert.Equal(t, 1, code, "should exit 1 when a script fails")

	var report domain.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, domain.StatusFailed, report.OverallStatus)
	assert.False(t, report.DeploymentReady)
	assert.Equal(t, "critical", report.ThreatLevel)
}

func TestE2E_BrokenSyntaxFails(t *testing.T) {
	out, code := run(t, "", "validate", fixturePath("broken.lua"), "--type", "syntax")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "SYN001")
}

func TestE2E_DirectoryIsBatch(t *testing.T) {
	out, code := run(t, "", "validate", fixturePath(""), "--format", "json")
	assert.Equal(t, 1, code, "the directory holds failing fixtures")

	var batch domain.BatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &batch))
	assert.Equal(t, 3, batch.Stats.Total)
	assert.Equal(t, 2, batch.Stats.Failed)
}

func TestE2E_Stdin(t *testing.T) {
	out, code := run(t, "print(\"hi\")\n", "validate", "--stdin", "--type", "syntax", "--format", "json")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, `"scriptName": "stdin"`)
}

func TestE2E_InvalidInputExitsTwo(t *testing.T) {
	_, code := run(t, "print(1)", "validate", "--stdin", "--subject", "alchemy")
	assert.Equal(t, 2, code)

	_, code = run(t, "", "validate", fixturePath("missing.lua"))
	assert.Equal(t, 2, code)
}

// --- Batch Tests ---

func TestE2E_Batch(t *testing.T) {
	out, code := run(t, "", "batch", fixturePath("requests.json"), "--format", "json")
	assert.Equal(t, 1, code, "the empty script fails")

	var batch domain.BatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &batch))
	require.Len(t, batch.Items, 2)
	assert.Equal(t, "Greeter.lua", batch.Items[0].ScriptName)
	assert.Equal(t, domain.StatusPassed, batch.Items[0].Status)
	assert.Equal(t, domain.StatusFailed, batch.Items[1].Status)
}

// --- Rules Test ---

func TestE2E_Rules(t *testing.T) {
	out, code := run(t, "", "rules")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "SEC001")
}

// --- Version Test ---

func TestE2E_Version(t *testing.T) {
	out, code := run(t, "", "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "luaguard")
}
