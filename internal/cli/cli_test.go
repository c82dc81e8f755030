package cli

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/mediums/internal/paths"
	"github.com/mesh-intelligence/mediums/pkg/ops"
	"github.com/mesh-intelligence/mediums/pkg/sqlite"
	"github.com/mesh-intelligence/mediums/pkg/types"
)

// harness runs mediumctl commands against private config and data
// directories.
type harness struct {
	t         *testing.T
	configDir string
	dataDir   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv(paths.EnvConfigDir, "")
	t.Setenv(paths.EnvDataDir, "")
	dir := t.TempDir()
	return &harness{
		t:         t,
		configDir: filepath.Join(dir, "config"),
		dataDir:   filepath.Join(dir, "data"),
	}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config-dir", h.configDir, "--data-dir", h.dataDir}, args...))
	err := root.Execute()
	return stdout.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, "mediumctl %s", strings.Join(args, " "))
	return out
}

func (h *harness) writeConfig(yaml string) {
	h.t.Helper()
	require.NoError(h.t, os.MkdirAll(h.configDir, 0o755))
	require.NoError(h.t, os.WriteFile(paths.ConfigFile(h.configDir), []byte(yaml), 0o644))
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("version")
	assert.Contains(t, out, "mediumctl v0.1.0")
	assert.Contains(t, out, modulePath)
}

func TestInit(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("init")
	assert.Contains(t, out, `Medium "default" initialized (sqlite)`)
	assert.FileExists(t, paths.ConfigFile(h.configDir))
	assert.FileExists(t, filepath.Join(h.dataDir, sqlite.DatabaseFile))

	cfg, err := loadConfig(h.configDir)
	require.NoError(t, err)
	assert.Equal(t, types.BackendSQLite, cfg.Backend)
	assert.Equal(t, uint64(4096), cfg.EraseSize)
	assert.Equal(t, byte(0xFF), cfg.EraseValue)
	assert.Equal(t, h.dataDir, cfg.DataDir)

	// Idempotent: the existing config and medium are reused.
	h.mustRun("init")
}

func TestInfo_JSON(t *testing.T) {
	h := newHarness(t)
	h.mustRun("init")

	out := h.mustRun("--json", "info")
	var info struct {
		Name      string   `json:"name"`
		ID        string   `json:"id"`
		Size      uint64   `json:"size"`
		WordSize  uint64   `json:"word_size"`
		EraseSize uint64   `json:"erase_size"`
		Caps      string   `json:"capabilities"`
		Wear      []uint64 `json:"wear"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "default", info.Name)
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, uint64(1<<20), info.Size)
	assert.Equal(t, uint64(4), info.WordSize)
	assert.Equal(t, uint64(4096), info.EraseSize)
	assert.Equal(t, "read|write|erase|erase-before-write", info.Caps)
	assert.Len(t, info.Wear, 256)
}

func TestInfo_CustomConfig(t *testing.T) {
	h := newHarness(t)
	h.writeConfig("backend: sqlite\nname: boot\nsize: 8192\nword_size: 1\nerase_size: 1024\nerase_value: 0\n")

	out := h.mustRun("info")
	assert.Contains(t, out, "name:       boot (sqlite)")
	assert.Contains(t, out, "8192 bytes")
	assert.Contains(t, out, "erase size: 1024")
}

func TestReadWriteErase(t *testing.T) {
	h := newHarness(t)
	h.mustRun("init")

	h.mustRun("erase", "0", "4096")
	out := h.mustRun("write", "0x10", "deadbeef")
	assert.Contains(t, out, "wrote 4 bytes at 0x00000010")

	out = h.mustRun("--json", "read", "0x10", "8")
	var res transfer
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, types.Address(0x10), res.Address)
	assert.Equal(t, "deadbeefffffffff", res.Data)

	out = h.mustRun("read", "0x10", "4")
	assert.Equal(t, "0x00000010  de ad be ef\n", out)

	// Overwriting without an erase is rejected.
	_, err := h.run("write", "0x10", "00000000")
	require.ErrorIs(t, err, types.ErrNotErased)
	assert.Equal(t, exitUserError, ExitCode(err))

	h.mustRun("write", "--update", "0x10", "01020304")
	out = h.mustRun("read", "0x0c", "12")
	assert.Equal(t, "0x0000000c  ff ff ff ff 01 02 03 04 ff ff ff ff\n", out)
}

func TestAccessErrors(t *testing.T) {
	h := newHarness(t)
	h.mustRun("init")

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"read past end", []string{"read", "0xFFFFC", "8"}, types.ErrOutOfBounds},
		{"read huge length", []string{"read", "0", "0x4000000000000000"}, types.ErrOutOfBounds},
		{"read wrapping length", []string{"read", "0x10", "0xFFFFFFFFFFFFFFFF"}, types.ErrOutOfBounds},
		{"dump huge length", []string{"dump", "--addr", "0", "--len", "0x4000000000000000", "out.img"}, types.ErrOutOfBounds},
		{"misaligned write", []string{"write", "2", "0000"}, types.ErrMisaligned},
		{"misaligned erase", []string{"erase", "0", "100"}, types.ErrMisaligned},
		{"erase past end", []string{"erase", "0x100000", "4096"}, types.ErrOutOfBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.run(tt.args...)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, exitUserError, ExitCode(err))
		})
	}
}

func TestBadArguments(t *testing.T) {
	h := newHarness(t)
	h.mustRun("init")

	for _, args := range [][]string{
		{"read", "zero", "4"},
		{"read", "0"},
		{"write", "0", "xyz"},
		{"digest", "0"},
		{"erase", "--all", "0", "4096"},
	} {
		_, err := h.run(args...)
		require.Error(t, err, "mediumctl %s", strings.Join(args, " "))
		assert.Equal(t, exitUserError, ExitCode(err))
	}
}

func TestDigest(t *testing.T) {
	h := newHarness(t)
	h.writeConfig("backend: sqlite\nsize: 4096\nword_size: 4\nerase_size: 1024\nerase_value: 255\nrequire_erase: true\n")

	out := h.mustRun("--json", "digest")
	var res map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "[0x00000000, 0x00001000)", res["region"])
	want := ops.DigestBytes(bytes.Repeat([]byte{0xFF}, 4096))
	assert.Equal(t, hex.EncodeToString(want), res["blake2b_256"])

	out = h.mustRun("digest", "0", "16")
	assert.True(t, strings.HasPrefix(out, hex.EncodeToString(ops.DigestBytes(bytes.Repeat([]byte{0xFF}, 16)))))
}

func TestDumpLoad(t *testing.T) {
	h := newHarness(t)
	h.mustRun("init")
	file := filepath.Join(t.TempDir(), "boot.img")

	h.mustRun("erase", "0x1000", "4096")
	h.mustRun("write", "0x1000", "00112233445566778899aabbccddeeff")
	h.mustRun("dump", "--addr", "0x1000", "--len", "4096", file)
	before := h.mustRun("digest", "0x1000", "4096")

	h.mustRun("erase", "--all")
	out := h.mustRun("read", "0x1000", "4")
	assert.Equal(t, "0x00001000  ff ff ff ff\n", out)

	out = h.mustRun("load", file)
	assert.Contains(t, out, "loaded [0x00001000, 0x00002000)")
	assert.Equal(t, before, h.mustRun("digest", "0x1000", "4096"))
}

func TestLoad_CorruptImage(t *testing.T) {
	h := newHarness(t)
	h.mustRun("init")

	file := filepath.Join(t.TempDir(), "bad.img")
	require.NoError(t, os.WriteFile(file, []byte("not an image"), 0o644))
	_, err := h.run("load", file)
	require.Error(t, err)
	assert.Equal(t, exitUserError, ExitCode(err))

	_, err = h.run("load", filepath.Join(t.TempDir(), "missing.img"))
	require.Error(t, err)
	assert.Equal(t, exitSysError, ExitCode(err))
}

func TestGeometryMismatchIsUserError(t *testing.T) {
	h := newHarness(t)
	h.mustRun("init")
	h.writeConfig("backend: sqlite\nsize: 4096\nword_size: 4\nerase_size: 1024\n")

	_, err := h.run("info")
	require.ErrorIs(t, err, types.ErrGeometryMismatch)
	assert.Equal(t, exitUserError, ExitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitSuccess, ExitCode(nil))
	assert.Equal(t, exitUserError, ExitCode(errors.New("unknown flag")))
	assert.Equal(t, exitUserError, ExitCode(types.OutOfBounds(types.OpRead, types.Span(0, 4))))
	assert.Equal(t, exitSysError, ExitCode(types.Fault(types.OpWrite, types.Span(0, 4), types.ErrTimeout)))
	assert.Equal(t, exitSysError, ExitCode(sysError(os.ErrPermission)))
	assert.Equal(t, exitUserError, ExitCode(userError(os.ErrInvalid)))
}
