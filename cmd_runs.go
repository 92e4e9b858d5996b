package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"profile_teardown/model"
	"profile_teardown/runlog"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List recorded runs, or show one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := runlog.Open(cfg.RunlogPath)
		if err != nil {
			return err
		}
		defer store.Close()

		out := cmd.OutOrStdout()
		if len(args) == 1 {
			r, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "run:      %s\nsubject:  %s\nstarted:  %s\nduration: %s\nscore:    %d (passed=%t)\n",
				r.ID, r.SubjectDir, r.StartedAt.Format("2006-01-02 15:04:05"), r.Duration, r.Score, r.Passed)
			if r.ResumedFrom != "" {
				fmt.Fprintf(out, "resumed:  %s\n", r.ResumedFrom)
			}
			keys := make([]model.ContentKey, 0, len(r.States))
			for k := range r.States {
				keys = append(keys, k)
			}
			sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
			for _, k := range keys {
				fmt.Fprintf(out, "  %-8s %s\n", k, r.States[k])
			}
			return nil
		}

		runs, err := store.List(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTARTED\tSUBJECT\tITEMS\tSCORE")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", r.ID, r.StartedAt.Format("2006-01-02 15:04"), r.SubjectDir, r.ContentCount, r.Score)
		}
		return tw.Flush()
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "max runs to list")
}
