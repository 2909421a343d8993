package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-simplefs/internal/config"
	"github.com/deploymenttheory/go-simplefs/internal/disk"
	"github.com/deploymenttheory/go-simplefs/internal/fsutil"
	"github.com/deploymenttheory/go-simplefs/internal/logger"
	"github.com/deploymenttheory/go-simplefs/internal/shell"
)

// shellCmd starts an interactive session, or runs one shell command when arguments are given
var shellCmd = &cobra.Command{
	Use:   "shell [command [args...]]",
	Short: "Explore a volume interactively",
	Long: `shell opens the volume image and reads commands from the terminal:
format, mount, unmount, debug, stat, create, delete, getsize, cat, copyin and
copyout. A missing image is created with device.blocks blocks first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := devicePath()
		if err != nil {
			return err
		}

		var dev *disk.FileDevice
		if fsutil.FileExists(path) {
			dev, err = disk.OpenFileDevice(path)
		} else {
			if err := fsutil.CreateDirIfNotExists(filepath.Dir(path)); err != nil {
				return err
			}
			logger.LogInfo("Creating volume image", map[string]interface{}{
				"path":   path,
				"blocks": config.Instance.Device.Blocks,
			})
			dev, err = disk.CreateFileDevice(path, config.Instance.Device.Blocks)
		}
		if err != nil {
			return err
		}
		defer closeDevice(dev)

		sh := shell.New(shell.NewSession(dev), fmt.Sprintf("%s> ", filepath.Base(path)))
		if len(args) > 0 {
			return sh.Process(args...)
		}
		sh.Println("simplefs shell, type help for commands")
		sh.Run()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
}
