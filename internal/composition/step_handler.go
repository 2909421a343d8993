package composition

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/deploymenttheory/go-simplefs/internal/config"
	"github.com/deploymenttheory/go-simplefs/internal/cryptoutil"
	"github.com/deploymenttheory/go-simplefs/internal/disk"
	apperrors "github.com/deploymenttheory/go-simplefs/internal/errors"
	"github.com/deploymenttheory/go-simplefs/internal/fsutil"
	"github.com/deploymenttheory/go-simplefs/internal/imageutil"
	"github.com/deploymenttheory/go-simplefs/internal/logger"
	"github.com/deploymenttheory/go-simplefs/internal/objectstore"
	"github.com/deploymenttheory/go-simplefs/internal/report"
	"github.com/deploymenttheory/go-simplefs/internal/simplefs"
)

// stepHandler executes one workflow step against the runner
type stepHandler func(r *Runner, p params) (map[string]interface{}, error)

type stepDefinition struct {
	handler  stepHandler
	required []string
}

var stepRegistry = map[string]stepDefinition{
	"mkdisk":  {handleMkdiskStep, []string{"path", "blocks"}},
	"memdisk": {handleMemdiskStep, []string{"blocks"}},
	"open":    {handleOpenStep, []string{"path"}},
	"format":  {handleFormatStep, nil},
	"mount":   {handleMountStep, nil},
	"unmount": {handleUnmountStep, nil},
	"create":  {handleCreateStep, nil},
	"delete":  {handleDeleteStep, []string{"inode"}},
	"write":   {handleWriteStep, []string{"inode", "data"}},
	"read":    {handleReadStep, []string{"inode"}},
	"copyin":  {handleCopyInStep, []string{"inode", "source"}},
	"copyout": {handleCopyOutStep, []string{"inode", "destination"}},
	"getsize": {handleGetSizeStep, []string{"inode"}},
	"debug":   {handleDebugStep, nil},
	"export":  {handleExportStep, []string{"output"}},
	"push":    {handlePushStep, []string{"image"}},
}

// evaluateCondition renders the condition and checks if it is true, yes or 1
func evaluateCondition(condition string, variables map[string]interface{}) (bool, error) {
	result, err := processTemplate(condition, variables)
	if err != nil {
		return false, err
	}

	result = strings.TrimSpace(strings.ToLower(result))
	return result == "true" || result == "yes" || result == "1", nil
}

// params gives handlers typed access to a step's parameters, rendering templates on the way
type params struct {
	step      Step
	variables map[string]interface{}
}

func newParams(step Step, variables map[string]interface{}) params {
	return params{step: step, variables: variables}
}

func (p params) missing(key string) error {
	return fmt.Errorf("%w: '%s'", apperrors.ErrMissingParameter, key)
}

func (p params) stringParam(key string) (string, error) {
	raw, ok := p.step.Parameters[key]
	if !ok {
		return "", p.missing(key)
	}
	if s, ok := raw.(string); ok {
		return processTemplate(s, p.variables)
	}
	return fmt.Sprint(raw), nil
}

func (p params) optionalString(key, def string) (string, error) {
	if _, ok := p.step.Parameters[key]; !ok {
		return def, nil
	}
	return p.stringParam(key)
}

func (p params) intParam(key string) (int, error) {
	raw, ok := p.step.Parameters[key]
	if !ok {
		return 0, p.missing(key)
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint32:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("%w: '%s' is not an integer", apperrors.ErrInvalidArgument, key)
		}
		return int(v), nil
	}

	s, err := p.stringParam(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: '%s' is not an integer: %q", apperrors.ErrInvalidArgument, key, s)
	}
	return n, nil
}

func (p params) optionalInt(key string, def int) (int, error) {
	if _, ok := p.step.Parameters[key]; !ok {
		return def, nil
	}
	return p.intParam(key)
}

func (p params) boolParam(key string) (bool, error) {
	raw, ok := p.step.Parameters[key]
	if !ok {
		return false, nil
	}
	if b, ok := raw.(bool); ok {
		return b, nil
	}
	s, err := p.stringParam(key)
	if err != nil {
		return false, err
	}
	s = strings.TrimSpace(strings.ToLower(s))
	return s == "true" || s == "yes" || s == "1", nil
}

func (r *Runner) requireDevice() error {
	if r.Device == nil {
		return apperrors.ErrNoDeviceOpen
	}
	return nil
}

// replaceDevice closes the current device, if any, and installs dev
func (r *Runner) replaceDevice(dev disk.BlockDevice) error {
	if err := r.Close(); err != nil {
		dev.Close()
		return err
	}
	r.Device = dev
	return nil
}

func blockCount(p params) (uint32, error) {
	blocks, err := p.intParam("blocks")
	if err != nil {
		return 0, err
	}
	if blocks <= 0 || uint64(blocks) > uint64(^uint32(0)) {
		return 0, fmt.Errorf("%w: blocks must be between 1 and %d", apperrors.ErrInvalidArgument, ^uint32(0))
	}
	return uint32(blocks), nil
}

func handleMkdiskStep(r *Runner, p params) (map[string]interface{}, error) {
	path, err := p.stringParam("path")
	if err != nil {
		return nil, err
	}
	blocks, err := blockCount(p)
	if err != nil {
		return nil, err
	}
	if err := fsutil.CreateDirIfNotExists(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFileWriteError, err)
	}

	dev, err := disk.CreateFileDevice(path, blocks)
	if err != nil {
		return nil, err
	}
	if err := r.replaceDevice(dev); err != nil {
		return nil, err
	}
	return map[string]interface{}{"path": path, "blocks": int(blocks)}, nil
}

func handleMemdiskStep(r *Runner, p params) (map[string]interface{}, error) {
	blocks, err := blockCount(p)
	if err != nil {
		return nil, err
	}
	if err := r.replaceDevice(disk.NewMemoryDevice(blocks)); err != nil {
		return nil, err
	}
	return map[string]interface{}{"blocks": int(blocks)}, nil
}

func handleOpenStep(r *Runner, p params) (map[string]interface{}, error) {
	path, err := p.stringParam("path")
	if err != nil {
		return nil, err
	}
	if !fsutil.FileExists(path) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrDeviceNotFound, path)
	}

	dev, err := disk.OpenFileDevice(path)
	if err != nil {
		return nil, err
	}
	if err := r.replaceDevice(dev); err != nil {
		return nil, err
	}
	return map[string]interface{}{"path": path, "blocks": int(dev.GetBlockCount())}, nil
}

func handleFormatStep(r *Runner, _ params) (map[string]interface{}, error) {
	if err := r.requireDevice(); err != nil {
		return nil, err
	}
	sb, err := r.Volume.Format(r.Device)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"blocks":       int(sb.BlockCount),
		"inode_blocks": int(sb.InodeBlockCount),
		"inodes":       int(sb.InodeCount),
	}, nil
}

func handleMountStep(r *Runner, _ params) (map[string]interface{}, error) {
	if err := r.requireDevice(); err != nil {
		return nil, err
	}
	if err := r.Volume.Mount(r.Device); err != nil {
		return nil, err
	}
	return map[string]interface{}{"session": r.Volume.SessionID().String()}, nil
}

func handleUnmountStep(r *Runner, _ params) (map[string]interface{}, error) {
	return nil, r.Volume.Unmount()
}

func handleCreateStep(r *Runner, _ params) (map[string]interface{}, error) {
	n, err := r.Volume.CreateInode()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"inode": n}, nil
}

func handleDeleteStep(r *Runner, p params) (map[string]interface{}, error) {
	n, err := p.intParam("inode")
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"inode": n}, r.Volume.DeleteInode(n)
}

func handleWriteStep(r *Runner, p params) (map[string]interface{}, error) {
	n, err := p.intParam("inode")
	if err != nil {
		return nil, err
	}
	data, err := p.stringParam("data")
	if err != nil {
		return nil, err
	}
	offset, err := p.optionalInt("offset", 0)
	if err != nil {
		return nil, err
	}

	written, err := r.Volume.Write(n, []byte(data), len(data), offset)
	if err != nil {
		return nil, err
	}
	size, err := r.Volume.GetSize(n)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"inode": n, "written": written, "size": size}, nil
}

func handleReadStep(r *Runner, p params) (map[string]interface{}, error) {
	n, err := p.intParam("inode")
	if err != nil {
		return nil, err
	}
	offset, err := p.optionalInt("offset", 0)
	if err != nil {
		return nil, err
	}
	length, err := p.optionalInt("length", simplefs.MaxFileSize)
	if err != nil {
		return nil, err
	}
	echo, err := p.boolParam("print")
	if err != nil {
		return nil, err
	}

	data, err := r.Volume.Read(n, length, offset)
	if err != nil {
		return nil, err
	}
	if echo {
		if _, err := r.Output.Write(data); err != nil {
			return nil, err
		}
	}
	return map[string]interface{}{"inode": n, "data": string(data), "length": len(data)}, nil
}

func handleCopyInStep(r *Runner, p params) (map[string]interface{}, error) {
	n, err := p.intParam("inode")
	if err != nil {
		return nil, err
	}
	source, err := p.stringParam("source")
	if err != nil {
		return nil, err
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFileReadError, err)
	}
	defer f.Close()

	copied, err := simplefs.CopyIn(r.Volume, n, f)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"inode": n, "bytes": int(copied)}, nil
}

func handleCopyOutStep(r *Runner, p params) (map[string]interface{}, error) {
	n, err := p.intParam("inode")
	if err != nil {
		return nil, err
	}
	destination, err := p.stringParam("destination")
	if err != nil {
		return nil, err
	}

	f, err := fsutil.CreateFileWithDirs(destination)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFileWriteError, err)
	}
	copied, err := simplefs.CopyOut(r.Volume, n, f)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("%w: %v", apperrors.ErrFileWriteError, closeErr)
	}
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"inode": n, "bytes": int(copied)}, nil
}

func handleGetSizeStep(r *Runner, p params) (map[string]interface{}, error) {
	n, err := p.intParam("inode")
	if err != nil {
		return nil, err
	}
	size, err := r.Volume.GetSize(n)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"inode": n, "size": size}, nil
}

func handleDebugStep(r *Runner, p params) (map[string]interface{}, error) {
	if err := r.requireDevice(); err != nil {
		return nil, err
	}
	name, err := p.optionalString("format", config.Instance.Dump.Format)
	if err != nil {
		return nil, err
	}
	format, err := report.ParseFormat(name)
	if err != nil {
		return nil, err
	}
	output, err := p.optionalString("output", "")
	if err != nil {
		return nil, err
	}

	dump, err := r.Volume.DebugDump(r.Device)
	if err != nil {
		return nil, err
	}

	var w io.Writer = r.Output
	if output != "" {
		f, err := fsutil.CreateFileWithDirs(output)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrFileWriteError, err)
		}
		defer f.Close()
		w = f
	}
	if err := report.Render(w, dump, format); err != nil {
		return nil, err
	}
	return map[string]interface{}{"inodes": len(dump.Inodes), "blocks": int(dump.Superblock.BlockCount)}, nil
}

func handleExportStep(r *Runner, p params) (map[string]interface{}, error) {
	if err := r.requireDevice(); err != nil {
		return nil, err
	}
	output, err := p.stringParam("output")
	if err != nil {
		return nil, err
	}
	compressionName, err := p.optionalString("compression", config.Instance.Image.Compression)
	if err != nil {
		return nil, err
	}
	checksum, err := p.optionalString("checksum", config.Instance.Image.Checksum)
	if err != nil {
		return nil, err
	}

	opts := imageutil.DefaultOptions()
	if compressionName != "" {
		if opts.Compression, err = imageutil.ParseCompression(compressionName); err != nil {
			return nil, err
		}
	}
	if checksum != "" {
		opts.Checksum = cryptoutil.HashAlgorithm(strings.ToLower(checksum))
	}

	m, err := imageutil.ExportFile(r.Device, output, opts)
	if err != nil {
		return nil, err
	}
	logger.LogInfo("Volume image exported", map[string]interface{}{
		"path":        output,
		"compression": string(m.Compression),
		"checksum":    m.RawChecksum,
	})
	return map[string]interface{}{
		"path":         output,
		"checksum":     m.RawChecksum,
		"archive_size": int(m.ArchiveSize),
	}, nil
}

func handlePushStep(r *Runner, p params) (map[string]interface{}, error) {
	image, err := p.stringParam("image")
	if err != nil {
		return nil, err
	}
	store, err := objectstore.NewFromConfig(config.Instance)
	if err != nil {
		return nil, err
	}
	key, err := store.Push(image)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"key": key, "bucket": store.Bucket}, nil
}
