package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"opt-eligibility/internal/common/config"
	"opt-eligibility/internal/eligibility"

	"github.com/spf13/cobra"
)

// errIneligible makes the process exit 1 without printing anything beyond
// the outcome document.
var errIneligible = errors.New("application is ineligible")

type options struct {
	configPath string
	today      string
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "opt-check",
		Short:         "Check F-1 OPT applications against the eligibility rules",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file with a rules section (defaults to the built-in rule table)")
	root.PersistentFlags().StringVar(&opts.today, "today", "", "evaluate as of this date (YYYY-MM-DD) instead of the current date")

	root.AddCommand(newValidateCmd(opts), newTimelineCmd(opts), newActivitiesCmd())
	return root
}

// policy loads the rule table from --config, or the defaults.
func (o *options) policy() (eligibility.Policy, error) {
	if o.configPath == "" {
		return eligibility.DefaultPolicy(), nil
	}
	cfg, err := config.LoadFromFile(o.configPath)
	if err != nil {
		return eligibility.Policy{}, err
	}
	return cfg.Rules.Policy()
}

// engine builds an engine whose clock is pinned by --today when given.
func (o *options) engine() (*eligibility.Engine, error) {
	policy, err := o.policy()
	if err != nil {
		return nil, err
	}

	var opts []eligibility.Option
	if o.today != "" {
		today, err := eligibility.ParseDate(o.today)
		if err != nil {
			return nil, fmt.Errorf("--today: %w", err)
		}
		opts = append(opts, eligibility.WithClock(func() time.Time { return today }))
	}
	return eligibility.NewEngine(policy, opts...)
}
