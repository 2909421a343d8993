package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"

	apperrors "github.com/deploymenttheory/go-simplefs/internal/errors"
	"github.com/deploymenttheory/go-simplefs/internal/fsutil"
	"github.com/deploymenttheory/go-simplefs/internal/osutil"
)

const (
	// AppName is the application name used for config files and directories
	AppName = "simplefs"

	// EnvPrefix is the prefix for environment variables
	EnvPrefix = "SIMPLEFS"
)

// S3Config holds the settings of the S3 image store
type S3Config struct {
	Bucket     string `mapstructure:"bucket"`
	Region     string `mapstructure:"region"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	Endpoint   string `mapstructure:"endpoint"`    // For custom S3-compatible storage
	DisableSSL bool   `mapstructure:"disable_ssl"` // For development/testing
	Prefix     string `mapstructure:"prefix"`
}

// LocalStoreConfig holds the settings of the directory image store
type LocalStoreConfig struct {
	Dir string `mapstructure:"dir"`
}

// AppConfig holds the application configuration
type AppConfig struct {
	// Core settings
	Debug     bool   `mapstructure:"debug"`
	LogFormat string `mapstructure:"log_format"`
	LogFile   string `mapstructure:"log_file"`

	// Volume image the commands operate on
	Device struct {
		Path   string `mapstructure:"path"`
		Blocks uint32 `mapstructure:"blocks"`
	} `mapstructure:"device"`

	// Debug dump settings
	Dump struct {
		Format string `mapstructure:"format"` // human, json, plist
	} `mapstructure:"dump"`

	// Image export settings
	Image struct {
		Compression string `mapstructure:"compression"` // none, gzip, bzip2, xz
		Checksum    string `mapstructure:"checksum"`    // sha256, sha512, blake2b
		OutputDir   string `mapstructure:"output_dir"`
	} `mapstructure:"image"`

	// Storage settings
	Storage struct {
		Provider string           `mapstructure:"provider"` // local, s3
		Local    LocalStoreConfig `mapstructure:"local"`
		S3       S3Config         `mapstructure:"s3"`
	} `mapstructure:"storage"`
}

// Global variables
var (
	// Global configuration instance
	Instance AppConfig

	// Status indicators
	ConfigLoaded bool
	ConfigFile   string

	// Viper instance
	v *viper.Viper

	// Ensure thread safety
	initOnce sync.Once
)

// Initialize sets up the configuration system
func Initialize(cfgFile string) error {
	var err error

	initOnce.Do(func() {
		v = viper.New()
		err = load(v, cfgFile)
		if err == nil {
			ensureDirectories()
		}
	})

	return err
}

// Reload re-reads configuration from cfgFile, replacing Instance
func Reload(cfgFile string) error {
	v = viper.New()
	return load(v, cfgFile)
}

// load populates Instance from defaults, the config file and the environment
func load(v *viper.Viper, cfgFile string) error {
	var err error

	// Set default values
	setDefaults(v)

	// Load configuration from file if specified
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
		addSearchPaths(v)
	}

	// Set up environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Read configuration file
	if readErr := v.ReadInConfig(); readErr != nil {
		if _, ok := readErr.(viper.ConfigFileNotFoundError); !ok {
			// Only capture error if the config file was found but couldn't be read
			err = fmt.Errorf("%w: %v", apperrors.ErrConfigRead, readErr)
		}
		ConfigLoaded = false
		ConfigFile = ""
	} else {
		ConfigLoaded = true
		ConfigFile = v.ConfigFileUsed()
	}

	// Unmarshal config into struct
	var cfg AppConfig
	if unmarshalErr := v.Unmarshal(&cfg); unmarshalErr != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrConfigParse, unmarshalErr)
	}
	if validateErr := Validate(cfg); validateErr != nil {
		return validateErr
	}
	Instance = cfg

	return err
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// Core settings
	v.SetDefault("debug", false)
	v.SetDefault("log_format", "human")
	if logDir, err := fsutil.GetLogDir(AppName); err == nil {
		v.SetDefault("log_file", filepath.Join(logDir, AppName+".log"))
	} else {
		v.SetDefault("log_file", "")
	}

	// Device defaults
	v.SetDefault("device.path", "simplefs.img")
	v.SetDefault("device.blocks", 100)

	v.SetDefault("dump.format", "human")

	// Image defaults
	v.SetDefault("image.compression", "gzip")
	v.SetDefault("image.checksum", "sha256")
	dataDir, err := fsutil.GetDataDir(AppName)
	if err == nil {
		v.SetDefault("image.output_dir", filepath.Join(dataDir, "images"))
	} else {
		v.SetDefault("image.output_dir", "images")
	}

	// Storage defaults
	v.SetDefault("storage.provider", "local")
	if err == nil {
		v.SetDefault("storage.local.dir", filepath.Join(dataDir, "store"))
	} else {
		v.SetDefault("storage.local.dir", "store")
	}
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.prefix", "images/")
}

// addSearchPaths adds config search paths
func addSearchPaths(v *viper.Viper) {
	// Always check current directory first
	v.AddConfigPath(".")

	// In dev mode, only use current directory and the local config directory
	if osutil.IsDevEnvironment() {
		configDir, err := fsutil.GetConfigDir(AppName)
		if err == nil {
			v.AddConfigPath(configDir)
		}
		return
	}

	// In CI/Pipeline, only use current directory and explicit CI directories
	if osutil.IsRunningInPipeline() {
		v.AddConfigPath("/etc/" + AppName)
		return
	}

	// Standard operation - add user config directory
	configDir, err := fsutil.GetConfigDir(AppName)
	if err == nil {
		v.AddConfigPath(configDir)
	}

	// Add system-wide config directory
	systemConfigDir, err := fsutil.GetSystemConfigDir(AppName)
	if err == nil {
		v.AddConfigPath(systemConfigDir)
	}
}

// ensureDirectories creates necessary directories based on configuration
func ensureDirectories() {
	// Don't create directories in a pipeline environment unless explicitly requested
	if osutil.IsRunningInPipeline() && os.Getenv("CREATE_DIRS") != "true" {
		return
	}

	if Instance.LogFile != "" {
		_ = fsutil.CreateDirIfNotExists(filepath.Dir(Instance.LogFile))
	}
}

// Validate rejects settings with values outside their allowed sets
func Validate(cfg AppConfig) error {
	checks := []struct {
		key     string
		value   string
		allowed []string
	}{
		{"log_format", cfg.LogFormat, []string{"human", "json"}},
		{"dump.format", cfg.Dump.Format, []string{"human", "json", "plist"}},
		{"image.compression", cfg.Image.Compression, []string{"none", "gzip", "bzip2", "xz"}},
		{"image.checksum", cfg.Image.Checksum, []string{"sha256", "sha512", "blake2b"}},
		{"storage.provider", cfg.Storage.Provider, []string{"local", "s3"}},
	}

	for _, c := range checks {
		if !contains(c.allowed, c.value) {
			return fmt.Errorf("%w: %s must be one of %s, got %q",
				apperrors.ErrInvalidConfig, c.key, strings.Join(c.allowed, ", "), c.value)
		}
	}
	return nil
}

// GetStorageConfig returns the S3Config or LocalStoreConfig selected by cfg's storage provider.
// An empty provider selects the local store.
func GetStorageConfig(cfg AppConfig) (interface{}, error) {
	switch cfg.Storage.Provider {
	case "s3":
		return cfg.Storage.S3, nil
	case "local", "":
		return cfg.Storage.Local, nil
	default:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrStorageProvider, cfg.Storage.Provider)
	}
}

// SaveConfig saves the current configuration to a file
func SaveConfig(filePath string) error {
	saveV := viper.New()
	saveV.SetConfigFile(filePath)

	for k, v := range toSettings(Instance) {
		saveV.Set(k, v)
	}

	// Ensure the directory exists
	configDir := filepath.Dir(filePath)
	if err := fsutil.CreateDirIfNotExists(configDir); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return saveV.WriteConfig()
}

// toSettings flattens a config into viper keys
func toSettings(cfg AppConfig) map[string]interface{} {
	return map[string]interface{}{
		"debug":                  cfg.Debug,
		"log_format":             cfg.LogFormat,
		"log_file":               cfg.LogFile,
		"device.path":            cfg.Device.Path,
		"device.blocks":          cfg.Device.Blocks,
		"dump.format":            cfg.Dump.Format,
		"image.compression":      cfg.Image.Compression,
		"image.checksum":         cfg.Image.Checksum,
		"image.output_dir":       cfg.Image.OutputDir,
		"storage.provider":       cfg.Storage.Provider,
		"storage.local.dir":      cfg.Storage.Local.Dir,
		"storage.s3.bucket":      cfg.Storage.S3.Bucket,
		"storage.s3.region":      cfg.Storage.S3.Region,
		"storage.s3.access_key":  cfg.Storage.S3.AccessKey,
		"storage.s3.secret_key":  cfg.Storage.S3.SecretKey,
		"storage.s3.endpoint":    cfg.Storage.S3.Endpoint,
		"storage.s3.disable_ssl": cfg.Storage.S3.DisableSSL,
		"storage.s3.prefix":      cfg.Storage.S3.Prefix,
	}
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
