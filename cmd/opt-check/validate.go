package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"opt-eligibility/internal/api"
	"opt-eligibility/internal/common/metrics"
	"opt-eligibility/internal/eligibility"

	"github.com/spf13/cobra"
)

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate an application JSON document from a file or stdin",
		Long: `Validates an application and prints the outcome as JSON.
Exits 1 when the application is ineligible.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, opts, args)
		},
	}
}

func runValidate(cmd *cobra.Command, opts *options, args []string) error {
	engine, err := opts.engine()
	if err != nil {
		return err
	}

	var src io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		src = f
	}

	body, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("read application: %w", err)
	}

	start := time.Now()
	outcome := engine.Validate(decodeObject(body))
	metrics.RecordValidation(metrics.ChannelCLI, outcome, time.Since(start))

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	switch result := outcome.(type) {
	case eligibility.Eligible:
		return enc.Encode(api.ValidResponse{
			Status:   "valid",
			Data:     result.Data,
			Timeline: eligibility.TimelineFor(result.Data),
		})
	case eligibility.Ineligible:
		if err := enc.Encode(api.InvalidResponse{
			Detail: api.InvalidDetail{Status: "invalid", Errors: result.Violations},
		}); err != nil {
			return err
		}
		return errIneligible
	}
	return nil
}

// decodeObject returns nil for anything that is not a single JSON object.
func decodeObject(body []byte) map[string]interface{} {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil || dec.More() {
		return nil
	}
	return obj
}
