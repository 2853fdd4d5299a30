package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/teamcast/core/history"
	"github.com/kilianp07/teamcast/core/model"
)

var historyFlags struct {
	since       time.Duration
	participant string
	group       string
	limit       int
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print recorded broadcasts, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.DurationVar(&historyFlags.since, "since", 0, "only broadcasts newer than this duration")
	f.StringVar(&historyFlags.participant, "participant", "", "only broadcasts sent by or to this participant ID")
	f.StringVar(&historyFlags.group, "group", "", "only broadcasts targeting this group")
	f.IntVar(&historyFlags.limit, "limit", 20, "maximum number of records")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	q := history.Query{ParticipantID: historyFlags.participant, Limit: historyFlags.limit}
	if historyFlags.since > 0 {
		q.Start = time.Now().Add(-historyFlags.since)
	}
	if historyFlags.group != "" {
		g, ok := model.ParseGroup(historyFlags.group)
		if !ok {
			return fmt.Errorf("unknown group %q", historyFlags.group)
		}
		q.Group = g
	}

	store, err := history.Open(cfg.History)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	recs, err := store.Query(context.Background(), q)
	if err != nil {
		return err
	}
	if recs == nil {
		recs = []history.Record{}
	}
	return printJSON(cmd.OutOrStdout(), recs)
}
