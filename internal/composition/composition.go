// Package composition runs YAML or JSON workflows of volume operations against one device.
package composition

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/deploymenttheory/go-simplefs/internal/config"
	"github.com/deploymenttheory/go-simplefs/internal/disk"
	apperrors "github.com/deploymenttheory/go-simplefs/internal/errors"
	"github.com/deploymenttheory/go-simplefs/internal/logger"
	"github.com/deploymenttheory/go-simplefs/internal/simplefs"
)

// LoadWorkflow loads a workflow from a file
func LoadWorkflow(filePath string) (*Workflow, error) {
	// Create a new viper instance for the workflow
	v := viper.New()

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: file not found: %s", apperrors.ErrWorkflowLoad, filePath)
	}

	v.SetConfigFile(filePath)

	// Determine the file extension for type
	ext := strings.ToLower(filepath.Ext(filePath))
	if ext != "" {
		v.SetConfigType(ext[1:])
	} else {
		// Default to YAML if no extension
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrWorkflowLoad, err)
	}

	workflow := &Workflow{}
	if err := v.Unmarshal(workflow); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrWorkflowLoad, err)
	}

	if workflow.Variables == nil {
		workflow.Variables = make(map[string]interface{})
	}
	addSystemVariables(workflow)

	return workflow, nil
}

// addSystemVariables adds system and config variables the workflow did not set itself
func addSystemVariables(workflow *Workflow) {
	defaults := map[string]interface{}{
		"device_path": config.Instance.Device.Path,
		"image_dir":   config.Instance.Image.OutputDir,
		"timestamp":   fmt.Sprintf("%d", time.Now().Unix()),
	}
	if cwd, err := os.Getwd(); err == nil {
		defaults["current_dir"] = cwd
	}

	for k, val := range defaults {
		if _, ok := workflow.Variables[k]; !ok {
			workflow.Variables[k] = val
		}
	}
}

// processTemplate renders a single template string against the variables
func processTemplate(templateString string, variables map[string]interface{}) (string, error) {
	// Only process if the string contains template markers
	if !strings.Contains(templateString, "{{") {
		return templateString, nil
	}

	tmpl, err := template.New("inline").Option("missingkey=error").Parse(templateString)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrTemplateRender, err)
	}

	var buffer bytes.Buffer
	if err := tmpl.Execute(&buffer, variables); err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrTemplateRender, err)
	}

	return buffer.String(), nil
}

// ValidateWorkflow checks the workflow structure and the parameters of every step
func ValidateWorkflow(workflow *Workflow) []error {
	var errs []error

	if workflow.Name == "" {
		errs = append(errs, fmt.Errorf("%w: workflow name is required", apperrors.ErrWorkflowInvalid))
	}

	if len(workflow.Steps) == 0 {
		errs = append(errs, fmt.Errorf("%w: workflow must contain at least one step", apperrors.ErrWorkflowInvalid))
	}

	for i, step := range workflow.Steps {
		if step.Name == "" {
			errs = append(errs, fmt.Errorf("%w: step %d: name is required", apperrors.ErrWorkflowInvalid, i+1))
		}

		if step.Type == "" {
			errs = append(errs, fmt.Errorf("%w: step %d (%s): type is required", apperrors.ErrWorkflowInvalid, i+1, step.Name))
			continue
		}

		if !isValidStepType(step.Type) {
			errs = append(errs, fmt.Errorf("%w: step %d (%s): '%s'", apperrors.ErrUnknownStepType, i+1, step.Name, step.Type))
			continue
		}

		for _, err := range validateStepParameters(step) {
			errs = append(errs, fmt.Errorf("step %d (%s): %w", i+1, step.Name, err))
		}
	}

	return errs
}

// isValidStepType checks if a step type has a handler
func isValidStepType(stepType string) bool {
	_, ok := stepRegistry[stepType]
	return ok
}

// validateStepParameters checks that every required parameter of the step type is present
func validateStepParameters(step Step) []error {
	var errs []error
	for _, name := range stepRegistry[step.Type].required {
		if _, ok := step.Parameters[name]; !ok {
			errs = append(errs, fmt.Errorf("%w: '%s'", apperrors.ErrMissingParameter, name))
		}
	}
	return errs
}

// Runner holds the device and volume a workflow operates on
type Runner struct {
	Device disk.BlockDevice
	Volume *simplefs.Volume
	RunID  uuid.UUID

	// Output receives the debug dumps and reads a workflow prints
	Output io.Writer
}

// NewRunner returns a runner with no device open
func NewRunner(out io.Writer) *Runner {
	if out == nil {
		out = io.Discard
	}
	return &Runner{Volume: simplefs.New(), RunID: uuid.New(), Output: out}
}

// Close releases the runner's device, if any
func (r *Runner) Close() error {
	if r.Device == nil {
		return nil
	}
	if r.Volume.Mounted() {
		if err := r.Volume.Unmount(); err != nil {
			logger.LogError("Failed to unmount volume", err, map[string]interface{}{"run_id": r.RunID.String()})
		}
	}
	if sp, ok := r.Device.(disk.StatsProvider); ok {
		stats := sp.Stats()
		logger.LogInfo("Device closed", map[string]interface{}{
			"run_id": r.RunID.String(),
			"reads":  stats.Reads,
			"writes": stats.Writes,
		})
	}
	err := r.Device.Close()
	r.Device = nil
	return err
}

// ExecuteWorkflow runs the workflow steps in order and stops at the first failure
func (r *Runner) ExecuteWorkflow(workflow *Workflow) error {
	if workflow.Variables == nil {
		workflow.Variables = make(map[string]interface{})
	}
	workflow.Variables["run_id"] = r.RunID.String()

	logger.LogInfo("Starting workflow execution", map[string]interface{}{
		"workflow": workflow.Name,
		"steps":    len(workflow.Steps),
		"run_id":   r.RunID.String(),
	})

	for i, step := range workflow.Steps {
		logger.LogInfo(fmt.Sprintf("Executing step %d/%d: %s", i+1, len(workflow.Steps), step.Name),
			map[string]interface{}{
				"type":        step.Type,
				"description": step.Description,
			})

		// Check if step should be skipped based on condition
		if step.Condition != "" {
			shouldRun, err := evaluateCondition(step.Condition, workflow.Variables)
			if err != nil {
				return fmt.Errorf("%w: condition of step '%s': %v", apperrors.ErrStepFailed, step.Name, err)
			}

			if !shouldRun {
				logger.LogInfo(fmt.Sprintf("Skipping step %d/%d: %s (condition not met)", i+1, len(workflow.Steps), step.Name), nil)
				continue
			}
		}

		def, found := stepRegistry[step.Type]
		if !found {
			return fmt.Errorf("%w: '%s'", apperrors.ErrUnknownStepType, step.Type)
		}

		result, err := def.handler(r, newParams(step, workflow.Variables))
		if err != nil {
			logger.LogError("Workflow step failed", err, map[string]interface{}{"step": step.Name})
			return fmt.Errorf("%w: step '%s': %w", apperrors.ErrStepFailed, step.Name, err)
		}

		if step.Register != "" && result != nil {
			workflow.Variables[step.Register] = result
		}

		logger.LogInfo(fmt.Sprintf("Completed step %d/%d: %s", i+1, len(workflow.Steps), step.Name), nil)
	}

	logger.LogInfo("Workflow execution completed successfully", map[string]interface{}{
		"workflow": workflow.Name,
		"run_id":   r.RunID.String(),
	})

	return nil
}
