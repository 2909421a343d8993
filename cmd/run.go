package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-simplefs/internal/composition"
	apperrors "github.com/deploymenttheory/go-simplefs/internal/errors"
	"github.com/deploymenttheory/go-simplefs/internal/logger"
)

var validateOnly bool

// runCmd executes a workflow file
var runCmd = &cobra.Command{
	Use:   "run <workflow>",
	Short: "Run a YAML or JSON workflow of volume operations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file := args[0]
		logger.LogInfo("Executing workflow", map[string]interface{}{
			"file": file,
		})

		workflow, err := composition.LoadWorkflow(file)
		if err != nil {
			return err
		}

		errs := composition.ValidateWorkflow(workflow)
		if len(errs) > 0 {
			// Log all validation errors
			for _, err := range errs {
				logger.LogError("Workflow validation error", err, nil)
			}
			return fmt.Errorf("%w: %d validation errors, first: %v", apperrors.ErrWorkflowInvalid, len(errs), errs[0])
		}
		if validateOnly {
			fmt.Fprintf(cmd.OutOrStdout(), "workflow %s is valid (%d steps)\n", workflow.Name, len(workflow.Steps))
			return nil
		}

		runner := composition.NewRunner(cmd.OutOrStdout())
		defer runner.Close()
		return runner.ExecuteWorkflow(workflow)
	},
}

func init() {
	runCmd.Flags().BoolVar(&validateOnly, "validate", false, "only load and validate the workflow")
	rootCmd.AddCommand(runCmd)
}
