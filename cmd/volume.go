package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-simplefs/internal/config"
	"github.com/deploymenttheory/go-simplefs/internal/disk"
	apperrors "github.com/deploymenttheory/go-simplefs/internal/errors"
	"github.com/deploymenttheory/go-simplefs/internal/fsutil"
	"github.com/deploymenttheory/go-simplefs/internal/logger"
	"github.com/deploymenttheory/go-simplefs/internal/shell"
	"github.com/deploymenttheory/go-simplefs/internal/simplefs"
)

// devicePath returns the volume image the command operates on
func devicePath() (string, error) {
	path := config.Instance.Device.Path
	if path == "" {
		return "", fmt.Errorf("%w: no device given (use --device or device.path)", apperrors.ErrInvalidArgument)
	}
	return path, nil
}

// openDevice opens the existing volume image at the configured path
func openDevice() (*disk.FileDevice, error) {
	path, err := devicePath()
	if err != nil {
		return nil, err
	}
	if !fsutil.FileExists(path) {
		return nil, fmt.Errorf("%w: %s (create it with mkdisk)", apperrors.ErrDeviceNotFound, path)
	}
	return disk.OpenFileDevice(path)
}

// closeDevice closes dev and reports its block I/O counters
func closeDevice(dev *disk.FileDevice) {
	stats := dev.Stats()
	logger.LogInfo("Device closed", map[string]interface{}{
		"device": dev.Name(),
		"reads":  stats.Reads,
		"writes": stats.Writes,
	})
	if err := dev.Close(); err != nil {
		logger.LogError("Failed to close device", err, map[string]interface{}{"device": dev.Name()})
	}
}

// runSessionCommand opens the device, optionally mounts it, and runs one shell command
func runSessionCommand(cmd *cobra.Command, name string, mount bool, args ...string) error {
	dev, err := openDevice()
	if err != nil {
		return err
	}
	defer closeDevice(dev)

	session := shell.NewSession(dev)
	if mount {
		if err := session.Volume.Mount(dev); err != nil {
			return err
		}
		defer unmountVolume(session.Volume, dev.Name())
	}
	return session.Execute(cmd.OutOrStdout(), name, args)
}

// unmountVolume unmounts v and logs a failure instead of returning it
func unmountVolume(v *simplefs.Volume, device string) {
	if err := v.Unmount(); err != nil {
		logger.LogError("Failed to unmount volume", err, map[string]interface{}{"device": device})
	}
}
