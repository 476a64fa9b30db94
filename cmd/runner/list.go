package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/allegro/nightly-runner/filter"
	"github.com/allegro/nightly-runner/manifest"
	"github.com/allegro/nightly-runner/runctx"
	"github.com/allegro/nightly-runner/seed"
	"github.com/allegro/nightly-runner/unit"
)

func newListCommand() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "list <manifest>",
		Short: "List units of a manifest with their seeds and filtering decisions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}
			flags.apply(cmd, &config)
			if err := setupLogging(config); err != nil {
				return err
			}
			rc, m, err := initialize(config, args[0])
			if err != nil {
				return err
			}
			return list(cmd.OutOrStdout(), rc, m)
		},
	}
	flags.register(cmd)
	return cmd
}

func list(out io.Writer, rc *runctx.RunContext, m *manifest.Manifest) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "UNIT\tSEED\tDECISION\n")
	for _, s := range m.Suites {
		for _, u := range s.Units {
			for _, id := range unit.Expand(s.Name, u.Name, u.Repeat) {
				verdict, err := filter.Evaluate(m, id, rc.Mode())
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", id, rc.DeriveSeed(id.String()), describe(verdict))
			}
		}
	}
	return w.Flush()
}

func describe(v filter.Verdict) string {
	if v.Decision == filter.StaticallySkipped {
		return v.Decision.String() + " (" + v.Reason + ")"
	}
	return v.Decision.String()
}

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Print a fresh run seed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := seed.New()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s)
			return nil
		},
	}
}
