package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagesmith.dev/engine/internal/core/plugin"
	"pagesmith.dev/engine/internal/infrastructure/config"
	"pagesmith.dev/engine/internal/interfaces/di"
)

const bannerDoc = `{
	"id": "banner",
	"name": "Banner",
	"priority": 5,
	"targetDomains": ["*.example.com"],
	"operations": [{"type": "delete", "selector": ".ads"}]
}`

const scriptDoc = `{
	"id": "script",
	"name": "Script",
	"targetDomains": ["*.example.com"],
	"operations": [{"type": "execute", "code": "console.log(1)"}]
}`

type result struct {
	stdout string
	stderr string
	code   int
}

// harness runs commands against one bolt file with an isolated config dir.
type harness struct {
	t        *testing.T
	dir      string
	dataPath string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("HOME", dir)
	t.Setenv("PAGESMITH_CONFIG", "")
	return &harness{t: t, dir: dir, dataPath: filepath.Join(dir, "data", "pagesmith.db")}
}

func (h *harness) run(stdin string, args ...string) result {
	h.t.Helper()
	var stdout, stderr bytes.Buffer
	app := NewApp(strings.NewReader(stdin), &stdout, &stderr)
	args = append(args, "--data-path", h.dataPath, "--log-level", "error")
	code := app.Run(context.Background(), args)
	return result{stdout: stdout.String(), stderr: stderr.String(), code: code}
}

func (h *harness) mustRun(stdin string, args ...string) string {
	h.t.Helper()
	res := h.run(stdin, args...)
	require.Equal(h.t, 0, res.code, "stderr: %s", res.stderr)
	return res.stdout
}

func (h *harness) writeFile(name, content string) string {
	h.t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(h.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPlugins_Lifecycle(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("", "plugins", "save", h.writeFile("banner.json", bannerDoc))
	assert.Contains(t, out, "Saved Banner (banner), disabled")

	out = h.mustRun("", "plugins", "list")
	assert.Contains(t, out, "banner")
	assert.Contains(t, out, "disabled")

	out = h.mustRun("", "plugins", "list", "--domain", "shop.example.com")
	assert.Contains(t, out, "No plugins apply to shop.example.com.")

	out = h.mustRun("", "plugins", "enable", "banner")
	assert.Contains(t, out, "Enabled Banner (banner), enabled")

	out = h.mustRun("", "plugins", "list", "--domain", "shop.example.com", "--json")
	var applied []plugin.Plugin
	require.NoError(t, json.Unmarshal([]byte(out), &applied))
	require.Len(t, applied, 1)
	assert.Equal(t, "banner", applied[0].ID)

	exported := filepath.Join(h.dir, "exported.json")
	h.mustRun("", "plugins", "export", "banner", "-o", exported)
	doc, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.NotContains(t, string(doc), "usageCount")

	out = h.mustRun(string(doc), "plugins", "import", "-")
	assert.Contains(t, out, "Imported Banner")
	assert.NotContains(t, out, "(banner)", "Import of a taken id gets a fresh one")

	out = h.mustRun("", "plugins", "list", "--json")
	var records []plugin.PluginData
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	assert.Len(t, records, 2)

	h.mustRun("", "plugins", "delete", "banner")
	res := h.run("", "plugins", "show", "banner")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "not found")
}

func TestPlugins_UsageIsRecorded(t *testing.T) {
	h := newHarness(t)
	h.mustRun(bannerDoc, "plugins", "save", "-")

	h.mustRun("", "plugins", "usage", "banner")
	h.mustRun("", "plugins", "usage", "banner")
	h.mustRun("", "plugins", "usage", "missing")

	var record plugin.PluginData
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("", "plugins", "show", "banner")), &record))
	assert.EqualValues(t, 2, record.UsageCount)
	assert.NotNil(t, record.LastUsedAt)
}

func TestPlugins_EnableDeniedBySecurityLevel(t *testing.T) {
	h := newHarness(t)
	h.mustRun(scriptDoc, "plugins", "save", "-")

	res := h.run("", "plugins", "enable", "script")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, `"advanced"`)

	h.mustRun("", "settings", "set", "--security-level", "advanced")
	out := h.mustRun("", "plugins", "enable", "script")
	assert.Contains(t, out, "enabled")

	out = h.mustRun("", "settings", "set", "--security-level", "safe")
	assert.Contains(t, out, "Disabled script")
}

func TestPlugins_SaveRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name     string
		document string
		expected string
	}{
		{name: "Malformed", document: `{"name":`, expected: "Error"},
		{name: "UnknownField", document: `{"name":"x","enabled":true}`, expected: "enabled"},
		{name: "MissingName", document: `{"targetDomains":["a.com"]}`, expected: "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			res := h.run(tt.document, "plugins", "save", "-")
			assert.Equal(t, 1, res.code)
			assert.Contains(t, res.stderr, tt.expected)
		})
	}
}

func TestPlugins_RemoteServer(t *testing.T) {
	h := newHarness(t)

	cfg := config.Default()
	cfg.StorageBackend = config.BackendMemory
	cfg.LogLevel = "error"
	container, err := di.NewContainer(context.Background(), cfg, io.Discard)
	require.NoError(t, err)
	defer container.Shutdown()

	server := container.HTTPServer()
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()
	defer server.Close()

	out := h.mustRun(bannerDoc, "plugins", "save", "-", "--server", ts.URL)
	assert.Contains(t, out, "Saved Banner (banner)")
	assert.Len(t, container.Router.GetAllPlugins(), 1)

	res := h.run("", "plugins", "delete", "missing", "--server", ts.URL)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "not found")

	out = h.mustRun("", "plugins", "list")
	assert.Contains(t, out, "No plugins stored.", "Local store is untouched in remote mode")
}

func TestSettings_ShowAndSet(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("", "settings", "show")
	assert.Contains(t, out, "Security Level: safe")
	assert.Contains(t, out, "API Key: (not set)")

	h.mustRun("", "settings", "set", "--api-key", "sk-abcdefghwxyz", "--auto-apply")
	out = h.mustRun("", "settings", "show")
	assert.Contains(t, out, "API Key: sk-a...wxyz")
	assert.Contains(t, out, "Auto Apply Plugins: true")

	out = h.mustRun("", "settings", "show", "--json")
	assert.NotContains(t, out, "sk-abcdefghwxyz")
}

func TestSettings_SetErrors(t *testing.T) {
	h := newHarness(t)

	res := h.run("", "settings", "set")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "nothing to change")

	res = h.run("", "settings", "set", "--security-level", "root")
	assert.Equal(t, 1, res.code)

	res = h.run("", "settings", "set", "--api-key", "has space")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "whitespace")
}

func TestConfig_ShowAppliesFlags(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("", "config", "show", "--storage-backend", "sqlite", "--listen-addr", "127.0.0.1:9000")
	assert.Contains(t, out, "Storage Backend: sqlite")
	assert.Contains(t, out, "Listen Address: 127.0.0.1:9000")
	assert.Contains(t, out, "Data Path: "+h.dataPath)
}

func TestConfig_InitThenLoad(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(h.dir, "conf", "pagesmith.yaml")

	out := h.mustRun("", "config", "init", "--config", path, "--listen-addr", "127.0.0.1:9100")
	assert.Contains(t, out, "Wrote "+path)

	res := h.run("", "config", "init", "--config", path)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "already exists")

	out = h.mustRun("", "config", "show", "--config", path)
	assert.Contains(t, out, "Listen Address: 127.0.0.1:9100")
}

func TestConfig_MissingExplicitFile(t *testing.T) {
	h := newHarness(t)
	res := h.run("", "config", "show", "--config", filepath.Join(h.dir, "nope.yaml"))
	assert.Equal(t, 1, res.code)
}

func TestConfig_InvalidBackend(t *testing.T) {
	h := newHarness(t)
	res := h.run("", "plugins", "list", "--storage-backend", "etcd")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "unknown storage backend")
}

func TestRoot_Version(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("", "--version")
	assert.Contains(t, out, "pagesmith version dev")
}

func TestFlagSource_OnlyChangedFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("data-path", "", "")
	flags.String("storage-backend", "", "")
	flags.String("log-level", "", "")
	flags.String("log-format", "", "")
	flags.String("listen-addr", "", "")
	require.NoError(t, flags.Parse([]string{"--log-level", "debug"}))

	cfg := config.Default()
	require.NoError(t, flagSource{flags: flags}.Apply(&cfg))

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, config.Default().StorageBackend, cfg.StorageBackend)
	assert.Equal(t, config.Default().ListenAddr, cfg.ListenAddr)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcdefg...", truncateString("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", truncateString("abcdef", 2))
}
