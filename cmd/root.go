package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-simplefs/internal/config"
	"github.com/deploymenttheory/go-simplefs/internal/logger"
)

var cfgFile string

// rootCmd represents the base CLI command
var rootCmd = &cobra.Command{
	Use:   "simplefs",
	Short: "Format, inspect and edit simplefs volume images",
	Long: `simplefs manages volume images in the simplefs block format: a superblock,
an inode table of fixed-size records with 14 direct block pointers each, and
data blocks of 4096 bytes.

Commands operate on the image named by --device (or device.path in the
config file). Volumes can be scripted with workflows, explored in an
interactive shell, and exported as compressed, checksummed images to a local
directory or an S3 bucket.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// If config file was explicitly specified via flag, reinitialize
		if cmd.Flags().Changed("config") && cfgFile != "" {
			// Only log an error, don't exit, as the config may still be usable
			if err := config.Reload(cfgFile); err != nil {
				logger.LogError("Error loading config file", err, map[string]interface{}{
					"config_file": cfgFile,
				})
			}
		}

		// CLI flags override config settings
		flags := cmd.Flags()
		if flags.Changed("debug") {
			config.Instance.Debug, _ = flags.GetBool("debug")
		}
		if flags.Changed("log-format") {
			config.Instance.LogFormat, _ = flags.GetString("log-format")
		}
		if flags.Changed("device") {
			config.Instance.Device.Path, _ = flags.GetString("device")
		}

		if flags.Changed("config") || flags.Changed("debug") || flags.Changed("log-format") {
			if err := logger.InitLogger(logger.LoggerConfig{
				Debug:     config.Instance.Debug,
				LogFormat: config.Instance.LogFormat,
				LogFile:   config.Instance.LogFile,
			}); err != nil {
				logger.LogError("Error reinitializing logger", err, nil)
			}
		}
	},
}

// Execute runs the root command
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		logger.LogError("Command execution failed", err, nil)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is search in standard locations)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: json or human")
	rootCmd.PersistentFlags().StringP("device", "d", "", "volume image to operate on (default device.path)")

	rootCmd.AddCommand(versionCmd)
}
