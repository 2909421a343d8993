// Package tooling is the programmatic entry point for embedding simplefs workflows in other programs.
package tooling

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/deploymenttheory/go-simplefs/internal/composition"
	"github.com/deploymenttheory/go-simplefs/internal/config"
	"github.com/deploymenttheory/go-simplefs/internal/logger"
)

// InitOptions contains options for initializing the tooling API
type InitOptions struct {
	ConfigFile  string // Path to configuration file
	Debug       bool   // Enable debug logging
	LogFormat   string // Log format: "human" or "json"
	LogFile     string // Path to log file
	SuppressLog bool   // Suppress all logging
}

// WorkflowResult contains the results of a workflow execution
type WorkflowResult struct {
	Success      bool                   // Whether the workflow completed successfully
	ErrorMessage string                 // Error message if any
	RunID        string                 // Identifier of the run, also available to templates as run_id
	Variables    map[string]interface{} // Final state of variables after workflow execution
}

var initialized bool

// Initialize initializes the tooling API with the given options
func Initialize(options InitOptions) error {
	if initialized {
		return nil
	}

	configErr := config.Initialize(options.ConfigFile)

	// Update config with provided options
	if options.Debug {
		config.Instance.Debug = true
	}
	if options.LogFormat != "" {
		config.Instance.LogFormat = options.LogFormat
	}
	if options.LogFile != "" {
		config.Instance.LogFile = options.LogFile
	}

	if !options.SuppressLog {
		logConfig := logger.LoggerConfig{
			Debug:     config.Instance.Debug,
			LogFormat: config.Instance.LogFormat,
			LogFile:   config.Instance.LogFile,
		}
		if err := logger.InitLogger(logConfig); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		logger.LogInfo("Tooling API initialized", map[string]interface{}{
			"config_file": options.ConfigFile,
			"debug":       options.Debug,
			"log_format":  options.LogFormat,
		})
		if configErr != nil {
			logger.LogWarn("Configuration initialization warning", map[string]interface{}{
				"error": configErr.Error(),
			})
		}
	}

	initialized = true
	return nil
}

// DefaultOptions returns the default initialization options
func DefaultOptions() InitOptions {
	return InitOptions{
		LogFormat: "human",
	}
}

func ensureInitialized() error {
	if initialized {
		return nil
	}
	if err := Initialize(DefaultOptions()); err != nil {
		return fmt.Errorf("failed to initialize tooling API: %w", err)
	}
	return nil
}

// ExecuteWorkflow runs the workflow in workflowFile; reads and dumps it prints go to out
func ExecuteWorkflow(workflowFile string, out io.Writer) (*WorkflowResult, error) {
	if err := ensureInitialized(); err != nil {
		return nil, err
	}

	logger.LogInfo("Executing workflow", map[string]interface{}{
		"file": workflowFile,
	})

	workflow, err := composition.LoadWorkflow(workflowFile)
	if err != nil {
		return &WorkflowResult{
			ErrorMessage: fmt.Sprintf("Failed to load workflow: %s", err.Error()),
		}, err
	}

	errs := composition.ValidateWorkflow(workflow)
	if len(errs) > 0 {
		messages := make([]string, 0, len(errs))
		for _, err := range errs {
			messages = append(messages, err.Error())
		}
		message := fmt.Sprintf("Workflow validation failed with %d errors: %s",
			len(errs), strings.Join(messages, "; "))

		return &WorkflowResult{ErrorMessage: message}, errs[0]
	}

	runner := composition.NewRunner(out)
	defer runner.Close()

	result := &WorkflowResult{RunID: runner.RunID.String()}
	if err := runner.ExecuteWorkflow(workflow); err != nil {
		result.ErrorMessage = fmt.Sprintf("Workflow execution failed: %s", err.Error())
		result.Variables = workflow.Variables
		return result, err
	}

	result.Success = true
	result.Variables = workflow.Variables
	return result, nil
}

// ExecuteWorkflowFromYAML runs a workflow given as a YAML document
func ExecuteWorkflowFromYAML(workflowYAML string, out io.Writer) (*WorkflowResult, error) {
	if err := ensureInitialized(); err != nil {
		return nil, err
	}

	tempFile, err := os.CreateTemp("", "workflow-*.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tempFile.Name())

	if _, err := tempFile.WriteString(workflowYAML); err != nil {
		tempFile.Close()
		return nil, fmt.Errorf("failed to write workflow to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temporary file: %w", err)
	}

	return ExecuteWorkflow(tempFile.Name(), out)
}

// SetDevice sets the volume image exposed to workflows as device_path
func SetDevice(path string, blocks uint32) {
	_ = ensureInitialized()

	config.Instance.Device.Path = path
	if blocks > 0 {
		config.Instance.Device.Blocks = blocks
	}
}

// SetImageOptions sets the compression and checksum used by export steps
func SetImageOptions(compression, checksum string) {
	_ = ensureInitialized()

	config.Instance.Image.Compression = compression
	config.Instance.Image.Checksum = checksum
}

// SetS3Credentials switches image storage to an S3 bucket
func SetS3Credentials(bucket, region, accessKey, secretKey string) {
	_ = ensureInitialized()

	config.Instance.Storage.Provider = "s3"
	config.Instance.Storage.S3.Bucket = bucket
	config.Instance.Storage.S3.Region = region
	config.Instance.Storage.S3.AccessKey = accessKey
	config.Instance.Storage.S3.SecretKey = secretKey
}

// Shutdown flushes logs before the application exits
func Shutdown() error {
	if initialized {
		logger.LogInfo("Tooling API shutting down", nil)
		logger.Sync()
	}
	return nil
}
