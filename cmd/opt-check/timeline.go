package main

import (
	"encoding/json"
	"fmt"
	"time"

	"opt-eligibility/internal/eligibility"

	"github.com/spf13/cobra"
)

type timelineFlags struct {
	stage             string
	end               string
	optStart          string
	unemploymentStart string
}

type timelineOutput struct {
	Timeline              eligibility.Timeline `json:"timeline"`
	UnemploymentLimitDate string               `json:"unemployment_limit_date,omitempty"`
}

func newTimelineCmd(opts *options) *cobra.Command {
	flags := &timelineFlags{}

	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Project filing and reporting dates for an OPT stage",
		Example: `  opt-check timeline --stage Post --end 2026-05-15
  opt-check timeline --stage STEM --end 2027-06-30 --opt-start 2026-07-01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTimeline(cmd, opts, flags)
		},
	}

	cmd.Flags().StringVar(&flags.stage, "stage", "", "OPT stage: Post or STEM")
	cmd.Flags().StringVar(&flags.end, "end", "", "program end date (Post) or current OPT end date (STEM), YYYY-MM-DD")
	cmd.Flags().StringVar(&flags.optStart, "opt-start", "", "OPT start date, enables STEM reporting dates")
	cmd.Flags().StringVar(&flags.unemploymentStart, "unemployment-start", "", "first unemployed day, adds the date the stage's allowance runs out")
	_ = cmd.MarkFlagRequired("stage")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func runTimeline(cmd *cobra.Command, opts *options, flags *timelineFlags) error {
	stage, ok := eligibility.ParseOptStage(flags.stage)
	if !ok {
		return fmt.Errorf("--stage must be one of Pre, Post, STEM")
	}
	end, err := eligibility.ParseDate(flags.end)
	if err != nil {
		return fmt.Errorf("--end: %w", err)
	}
	optStart, err := optionalDate("--opt-start", flags.optStart)
	if err != nil {
		return err
	}

	var out timelineOutput
	switch stage {
	case eligibility.StagePostCompletion:
		out.Timeline = eligibility.PostCompletionTimeline(end)
	case eligibility.StageStemExtension:
		out.Timeline = eligibility.StemExtensionTimeline(end, optStart)
	default:
		return fmt.Errorf("%s has no filing timeline", stage.DisplayName())
	}

	if flags.unemploymentStart != "" {
		start, err := optionalDate("--unemployment-start", flags.unemploymentStart)
		if err != nil {
			return err
		}
		policy, err := opts.policy()
		if err != nil {
			return err
		}
		limit := eligibility.UnemploymentLimitDate(*start, policy.Cap(stage))
		out.UnemploymentLimitDate = eligibility.FormatDate(limit)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func optionalDate(flag, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := eligibility.ParseDate(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", flag, err)
	}
	return &t, nil
}
