package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-simplefs/internal/config"
	"github.com/deploymenttheory/go-simplefs/internal/cryptoutil"
	apperrors "github.com/deploymenttheory/go-simplefs/internal/errors"
	"github.com/deploymenttheory/go-simplefs/internal/fsutil"
	"github.com/deploymenttheory/go-simplefs/internal/imageutil"
	"github.com/deploymenttheory/go-simplefs/internal/logger"
	"github.com/deploymenttheory/go-simplefs/internal/objectstore"
)

var (
	imageCompression string
	imageChecksum    string
	imageForce       bool
	pullDir          string
)

var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Export, import and store compressed volume images",
}

// exportOptions resolves compression and checksum from flags, then config
func exportOptions(cmd *cobra.Command) (imageutil.Options, error) {
	compression := config.Instance.Image.Compression
	if cmd.Flags().Changed("compression") || compression == "" {
		compression = imageCompression
	}
	checksum := config.Instance.Image.Checksum
	if cmd.Flags().Changed("checksum") || checksum == "" {
		checksum = imageChecksum
	}

	c, err := imageutil.ParseCompression(compression)
	if err != nil {
		return imageutil.Options{}, err
	}
	if _, err := cryptoutil.NewHasher(cryptoutil.HashAlgorithm(checksum)); err != nil {
		return imageutil.Options{}, err
	}
	return imageutil.Options{Compression: c, Checksum: cryptoutil.HashAlgorithm(strings.ToLower(checksum))}, nil
}

// defaultExportPath names the export after the device inside the output directory
func defaultExportPath(device, outputDir string, c imageutil.Compression) string {
	base := strings.TrimSuffix(filepath.Base(device), filepath.Ext(device))
	return filepath.Join(outputDir, imageutil.ImageName(base, c))
}

var imageExportCmd = &cobra.Command{
	Use:   "export [output]",
	Short: "Export the device as a compressed image with a checksum manifest",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := exportOptions(cmd)
		if err != nil {
			return err
		}
		dev, err := openDevice()
		if err != nil {
			return err
		}
		defer closeDevice(dev)

		output := defaultExportPath(dev.Name(), config.Instance.Image.OutputDir, opts.Compression)
		if len(args) == 1 {
			output = args[0]
		}

		m, err := imageutil.ExportFile(dev, output, opts)
		if err != nil {
			return err
		}
		logger.LogInfo("Volume image exported", map[string]interface{}{
			"path":        output,
			"compression": string(m.Compression),
			"raw_size":    m.RawSize,
			"size":        m.ArchiveSize,
		})
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", output, m.RawChecksum)
		return nil
	},
}

var imageImportCmd = &cobra.Command{
	Use:   "import <image>",
	Short: "Decompress and verify an image into the device path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dst, err := devicePath()
		if err != nil {
			return err
		}
		if fsutil.FileExists(dst) && !imageForce {
			return fmt.Errorf("%w: %s (use --force to overwrite)", apperrors.ErrDeviceExists, dst)
		}

		m, err := imageutil.ImportFile(args[0], dst)
		if err != nil {
			return err
		}
		logger.LogInfo("Volume image imported", map[string]interface{}{
			"source":      args[0],
			"device":      dst,
			"compression": string(m.Compression),
			"blocks":      m.BlockCount,
		})
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d blocks into %s\n", m.BlockCount, dst)
		return nil
	},
}

var imagePushCmd = &cobra.Command{
	Use:   "push <image>",
	Short: "Upload an exported image and its manifest to the configured store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := objectstore.NewFromConfig(config.Instance)
		if err != nil {
			return err
		}
		key, err := store.Push(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

var imagePullCmd = &cobra.Command{
	Use:   "pull <name>",
	Short: "Download a stored image and its manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := objectstore.NewFromConfig(config.Instance)
		if err != nil {
			return err
		}
		dir := pullDir
		if dir == "" {
			dir = config.Instance.Image.OutputDir
		}
		path, err := store.Pull(args[0], dir)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var imageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored images",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := objectstore.NewFromConfig(config.Instance)
		if err != nil {
			return err
		}
		names, err := store.List()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	imageExportCmd.Flags().StringVar(&imageCompression, "compression", "gzip", "compression: none, gzip, bzip2 or xz")
	imageExportCmd.Flags().StringVar(&imageChecksum, "checksum", "sha256", "checksum: sha256, sha512 or blake2b")
	imageImportCmd.Flags().BoolVar(&imageForce, "force", false, "overwrite an existing device image")
	imagePullCmd.Flags().StringVar(&pullDir, "dir", "", "download directory (default image.output_dir)")

	imageCmd.AddCommand(imageExportCmd, imageImportCmd, imagePushCmd, imagePullCmd, imageListCmd)
	rootCmd.AddCommand(imageCmd)
}
