package main

import (
	"encoding/json"
	"fmt"

	"opt-eligibility/pkg/registry"

	"github.com/spf13/cobra"
)

func newActivitiesCmd() *cobra.Command {
	var path, taskType string

	cmd := &cobra.Command{
		Use:   "activities",
		Short: "Validate the activity registry and print the registered service tasks",
		Example: `  opt-check activities
  opt-check activities --task check-opt-eligibility`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := registry.LoadRegistry(path)
			if err != nil {
				return err
			}
			if err := reg.Validate(); err != nil {
				return fmt.Errorf("registry validation failed: %w", err)
			}

			var doc interface{} = reg
			if taskType != "" {
				activity, ok := reg.Find(taskType)
				if !ok {
					return fmt.Errorf("task type %s is not registered", taskType)
				}
				doc = activity
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		},
	}

	cmd.Flags().StringVar(&path, "registry", "configs/activity-registry.json", "path to the activity registry")
	cmd.Flags().StringVar(&taskType, "task", "", "print only the activity with this task type")
	return cmd
}
