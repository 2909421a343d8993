package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-simplefs/internal/config"
	"github.com/deploymenttheory/go-simplefs/internal/disk"
	apperrors "github.com/deploymenttheory/go-simplefs/internal/errors"
	"github.com/deploymenttheory/go-simplefs/internal/fsutil"
	"github.com/deploymenttheory/go-simplefs/internal/logger"
)

var mkdiskForce bool

// mkdiskCmd creates a zero-filled volume image
var mkdiskCmd = &cobra.Command{
	Use:   "mkdisk [blocks]",
	Short: "Create an empty volume image of the given number of blocks",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := devicePath()
		if err != nil {
			return err
		}

		blocks := config.Instance.Device.Blocks
		if len(args) == 1 {
			n, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil || n == 0 {
				return fmt.Errorf("%w: block count %q", apperrors.ErrInvalidArgument, args[0])
			}
			blocks = uint32(n)
		}
		if blocks == 0 {
			return fmt.Errorf("%w: block count is required", apperrors.ErrInvalidArgument)
		}
		if fsutil.FileExists(path) && !mkdiskForce {
			return fmt.Errorf("%w: %s (use --force to overwrite)", apperrors.ErrDeviceExists, path)
		}

		if err := fsutil.CreateDirIfNotExists(filepath.Dir(path)); err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrFileWriteError, err)
		}
		dev, err := disk.CreateFileDevice(path, blocks)
		if err != nil {
			return err
		}
		defer closeDevice(dev)

		logger.LogInfo("Volume image created", map[string]interface{}{"path": path, "blocks": blocks})
		fmt.Fprintf(cmd.OutOrStdout(), "created %s with %d blocks\n", path, blocks)
		return nil
	},
}

var formatCmd = &cobra.Command{
	Use:   "format",
	Short: "Write a fresh superblock and an empty inode table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSessionCommand(cmd, "format", false)
	},
}

var debugOutput string

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dump the superblock and every valid inode",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format := debugOutput
		if !cmd.Flags().Changed("output") && config.Instance.Dump.Format != "" {
			format = config.Instance.Dump.Format
		}
		return runSessionCommand(cmd, "debug", false, format)
	},
}

var statOutput string

var statCmd = &cobra.Command{
	Use:   "stat",
	Short: "Show block and inode usage of the volume",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSessionCommand(cmd, "stat", true, statOutput)
	},
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an empty inode and print its number",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSessionCommand(cmd, "create", true)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <inode>",
	Short: "Delete an inode and release its blocks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSessionCommand(cmd, "delete", true, args...)
	},
}

var getsizeCmd = &cobra.Command{
	Use:   "getsize <inode>",
	Short: "Print the size of an inode in bytes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSessionCommand(cmd, "getsize", true, args...)
	},
}

var catCmd = &cobra.Command{
	Use:   "cat <inode>",
	Short: "Write the contents of an inode to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSessionCommand(cmd, "cat", true, args...)
	},
}

var copyinCmd = &cobra.Command{
	Use:   "copyin <host-file> <inode>",
	Short: "Copy a host file into an inode",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSessionCommand(cmd, "copyin", true, args...)
	},
}

var copyoutCmd = &cobra.Command{
	Use:   "copyout <inode> <host-file>",
	Short: "Copy an inode to a host file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSessionCommand(cmd, "copyout", true, args...)
	},
}

func init() {
	mkdiskCmd.Flags().BoolVar(&mkdiskForce, "force", false, "overwrite an existing image")
	debugCmd.Flags().StringVarP(&debugOutput, "output", "o", "human", "output format: human, json or plist")
	statCmd.Flags().StringVarP(&statOutput, "output", "o", "human", "output format: human, json or plist")

	rootCmd.AddCommand(mkdiskCmd, formatCmd, debugCmd, statCmd, createCmd, deleteCmd,
		getsizeCmd, catCmd, copyinCmd, copyoutCmd)
}
