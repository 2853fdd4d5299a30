package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/teamcast/app"
	"github.com/kilianp07/teamcast/core/broadcast"
	"github.com/kilianp07/teamcast/core/model"
	"github.com/kilianp07/teamcast/core/roster"
)

var sendFlags struct {
	message string
	group   string
	sender  string
	preview bool
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Broadcast a message to the roster file",
	RunE:  runSend,
}

func init() {
	f := sendCmd.Flags()
	f.StringVarP(&sendFlags.message, "message", "m", "", "message text")
	f.StringVarP(&sendFlags.group, "group", "g", "", "only address this group (the oversight group is always copied)")
	f.StringVar(&sendFlags.sender, "sender", "", "participant ID of the sender")
	f.BoolVar(&sendFlags.preview, "preview", false, "list the recipients without sending")
	rootCmd.AddCommand(sendCmd)
}

type cliOutcome struct {
	Recipient string          `json:"recipient"`
	Group     model.Group     `json:"group"`
	Status    string          `json:"status"`
	Detail    json.RawMessage `json:"detail,omitempty"`
}

type cliSummary struct {
	BroadcastID     string       `json:"broadcastId"`
	Sender          string       `json:"sender"`
	TotalRecipients int          `json:"totalRecipients"`
	DeliveredCount  int          `json:"deliveredCount"`
	FailedCount     int          `json:"failedCount"`
	Outcomes        []cliOutcome `json:"outcomes"`
}

func targetFromFlag(group string) (model.TargetSpec, error) {
	if group == "" {
		return model.All(), nil
	}
	g, ok := model.ParseGroup(group)
	if !ok {
		return model.TargetSpec{}, fmt.Errorf("unknown group %q", group)
	}
	return model.ByGroup(g), nil
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	target, err := targetFromFlag(sendFlags.group)
	if err != nil {
		return err
	}
	r, err := roster.Load(cfg.Roster.Path)
	if err != nil {
		return err
	}

	return withService(cfg, func(svc *app.Service) error {
		if sendFlags.preview {
			recipients, err := svc.Broadcasts.Preview(r.Snapshot(), target)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), recipients)
		}

		ctx, stop := signalContext()
		defer stop()
		res, err := svc.Broadcasts.Broadcast(ctx, broadcast.Request{
			SenderID:     sendFlags.sender,
			Message:      sendFlags.message,
			Target:       target,
			Participants: r.Snapshot(),
		})
		if err != nil {
			return err
		}
		out := cliSummary{
			BroadcastID:     res.ID,
			Sender:          res.Sender.Name,
			TotalRecipients: res.Summary.TotalRecipients,
			DeliveredCount:  res.Summary.DeliveredCount,
			FailedCount:     res.Summary.FailedCount,
			Outcomes:        make([]cliOutcome, 0, len(res.Summary.Outcomes)),
		}
		for _, o := range res.Summary.Outcomes {
			out.Outcomes = append(out.Outcomes, cliOutcome{
				Recipient: o.Recipient.Name,
				Group:     o.Recipient.Group,
				Status:    string(o.Status),
				Detail:    o.Detail,
			})
		}
		return printJSON(cmd.OutOrStdout(), out)
	})
}
