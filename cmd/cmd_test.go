package cmd

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/deploymenttheory/go-simplefs/internal/config"
	"github.com/deploymenttheory/go-simplefs/internal/disk"
	apperrors "github.com/deploymenttheory/go-simplefs/internal/errors"
	"github.com/deploymenttheory/go-simplefs/internal/imageutil"
	"github.com/deploymenttheory/go-simplefs/internal/logger"
	"github.com/deploymenttheory/go-simplefs/internal/simplefs"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func mustExecute(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("simplefs %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestVolumeCommands(t *testing.T) {
	dir := t.TempDir()
	device := filepath.Join(dir, "vol.img")
	host := filepath.Join(dir, "host.txt")
	copied := filepath.Join(dir, "copied.txt")
	content := strings.Repeat("0123456789", 500)
	if err := os.WriteFile(host, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	mustExecute(t, "-d", device, "mkdisk", "20")
	if _, err := execute(t, "-d", device, "mkdisk", "20"); !errors.Is(err, apperrors.ErrDeviceExists) {
		t.Errorf("second mkdisk: got %v, want %v", err, apperrors.ErrDeviceExists)
	}
	if _, err := execute(t, "-d", device, "create"); !errors.Is(err, simplefs.ErrCorruptSuperblock) {
		t.Errorf("create on unformatted image: got %v", err)
	}

	mustExecute(t, "-d", device, "format")
	if out := mustExecute(t, "-d", device, "create"); out != "created inode 0\n" {
		t.Errorf("create printed %q", out)
	}
	mustExecute(t, "-d", device, "copyin", host, "0")
	if out := mustExecute(t, "-d", device, "getsize", "0"); out != "inode 0 has size 5000\n" {
		t.Errorf("getsize printed %q", out)
	}
	if out := mustExecute(t, "-d", device, "cat", "0"); out != content {
		t.Errorf("cat printed %d bytes, want %d", len(out), len(content))
	}
	mustExecute(t, "-d", device, "copyout", "0", copied)
	if data, err := os.ReadFile(copied); err != nil || string(data) != content {
		t.Errorf("copyout wrote %d bytes (%v), want %d", len(data), err, len(content))
	}

	out := mustExecute(t, "-d", device, "debug", "-o", "json")
	if !strings.Contains(out, `"inode_count": 128`) {
		t.Errorf("debug json = %s", out)
	}
	if out := mustExecute(t, "-d", device, "stat", "-o", "human"); !strings.Contains(out, "1 used") {
		t.Errorf("stat = %q", out)
	}

	mustExecute(t, "-d", device, "delete", "0")
	if _, err := execute(t, "-d", device, "getsize", "0"); !errors.Is(err, simplefs.ErrInvalidInode) {
		t.Errorf("getsize after delete: got %v", err)
	}
}

func TestImageCommands(t *testing.T) {
	dir := t.TempDir()
	device := filepath.Join(dir, "vol.img")
	restored := filepath.Join(dir, "restored.img")
	exported := filepath.Join(dir, "exports", "vol.img.xz")
	pulled := filepath.Join(dir, "pulled")

	saved := config.Instance
	defer func() { config.Instance = saved }()
	config.Instance.Storage.Provider = "local"
	config.Instance.Storage.Local.Dir = filepath.Join(dir, "store")

	mustExecute(t, "-d", device, "mkdisk", "30")
	mustExecute(t, "-d", device, "format")
	mustExecute(t, "-d", device, "create")

	out := mustExecute(t, "-d", device, "image", "export", exported, "--compression", "xz", "--checksum", "blake2b")
	if !strings.HasPrefix(out, exported+"\nblake2b:") {
		t.Errorf("export printed %q", out)
	}
	m, err := imageutil.ReadManifest(exported)
	if err != nil {
		t.Fatal(err)
	}
	if m.Compression != imageutil.XZ || m.BlockCount != 30 {
		t.Errorf("manifest = %+v", m)
	}

	mustExecute(t, "-d", restored, "image", "import", exported)
	if out := mustExecute(t, "-d", restored, "getsize", "0"); out != "inode 0 has size 0\n" {
		t.Errorf("restored volume getsize printed %q", out)
	}

	mustExecute(t, "image", "push", exported)
	if out := mustExecute(t, "image", "list"); out != "vol.img.xz\n" {
		t.Errorf("list printed %q", out)
	}
	out = mustExecute(t, "image", "pull", "vol.img.xz", "--dir", pulled)
	if strings.TrimSpace(out) != filepath.Join(pulled, "vol.img.xz") {
		t.Errorf("pull printed %q", out)
	}
}

func TestUnmountVolumeLogsFailure(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	logger.UseLogger(zap.New(core))
	t.Cleanup(func() { logger.UseLogger(zap.NewNop()) })

	dev := disk.NewMemoryDevice(10)
	v := simplefs.New()
	if _, err := v.Format(dev); err != nil {
		t.Fatal(err)
	}
	if err := v.Mount(dev); err != nil {
		t.Fatal(err)
	}

	unmountVolume(v, "vol.img")
	if v.Mounted() {
		t.Error("volume still mounted")
	}
	if logs.Len() != 0 {
		t.Fatalf("clean unmount logged %v", logs.All())
	}

	unmountVolume(v, "vol.img")
	entries := logs.FilterMessage("Failed to unmount volume").All()
	if len(entries) != 1 {
		t.Fatalf("got %d unmount failures logged, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["device"]; got != "vol.img" {
		t.Errorf("logged device = %v", got)
	}
}

func TestDefaultExportPath(t *testing.T) {
	got := defaultExportPath("/var/lib/simplefs/disk.img", "/tmp/images", imageutil.Bzip2)
	if want := filepath.Join("/tmp/images", "disk.img.bz2"); got != want {
		t.Errorf("defaultExportPath = %s, want %s", got, want)
	}
}

func TestRunValidateOnly(t *testing.T) {
	workflow := filepath.Join(t.TempDir(), "wf.yaml")
	body := "name: scratch\nsteps:\n  - name: disk\n    type: memdisk\n    blocks: 10\n  - name: format\n    type: format\n"
	if err := os.WriteFile(workflow, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	out := mustExecute(t, "run", "--validate", workflow)
	if out != "workflow scratch is valid (2 steps)\n" {
		t.Errorf("run --validate printed %q", out)
	}
}

func TestVersion(t *testing.T) {
	if out := mustExecute(t, "version"); out != "simplefs v"+Version+"\n" {
		t.Errorf("version printed %q", out)
	}
}
