package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/teamcast/core/model"
	"github.com/kilianp07/teamcast/core/roster"
)

var rosterPath string

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Manage the roster file",
}

var rosterListCmd = &cobra.Command{
	Use:   "list",
	Short: "List participants",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, _, err := openRoster()
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tGROUP\tPHONE")
		for _, p := range r.Snapshot() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Group, p.Phone)
		}
		fmt.Fprintf(tw, "\n%d/%d places used\n", r.Len(), roster.MaxSize)
		return tw.Flush()
	},
}

var addFlags struct {
	name  string
	group string
	phone string
}

var rosterAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a participant",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, path, err := openRoster()
		if err != nil {
			return err
		}
		group := model.Group(addFlags.group)
		if g, ok := model.ParseGroup(addFlags.group); ok {
			group = g
		}
		p, err := r.Add(model.Participant{Name: addFlags.name, Group: group, Phone: addFlags.phone})
		if err != nil {
			return err
		}
		if err := r.Save(path); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), p.ID)
		return nil
	},
}

var rosterRemoveCmd = &cobra.Command{
	Use:   "remove ID",
	Short: "Remove a participant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, path, err := openRoster()
		if err != nil {
			return err
		}
		if !r.Remove(args[0]) {
			fmt.Fprintf(cmd.ErrOrStderr(), "no participant %s\n", args[0])
			return nil
		}
		return r.Save(path)
	},
}

var rosterImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace the roster with a JSON export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, path, err := openRoster()
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		n, err := r.Import(f)
		if err != nil {
			return err
		}
		if err := r.Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d participants\n", n)
		return nil
	},
}

var rosterExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the roster as JSON to stdout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, _, err := openRoster()
		if err != nil {
			return err
		}
		return r.Export(cmd.OutOrStdout())
	},
}

var rosterClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every participant",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, path, err := openRoster()
		if err != nil {
			return err
		}
		r.Clear()
		return r.Save(path)
	},
}

func init() {
	rosterCmd.PersistentFlags().StringVar(&rosterPath, "file", "", "roster file (defaults to roster.path)")
	f := rosterAddCmd.Flags()
	f.StringVar(&addFlags.name, "name", "", "display name")
	f.StringVar(&addFlags.group, "group", "", "group (defaults to the first group)")
	f.StringVar(&addFlags.phone, "phone", "", "phone number")
	_ = rosterAddCmd.MarkFlagRequired("name")

	rosterCmd.AddCommand(rosterListCmd, rosterAddCmd, rosterRemoveCmd,
		rosterImportCmd, rosterExportCmd, rosterClearCmd)
	rootCmd.AddCommand(rosterCmd)
}

func openRoster() (*roster.Roster, string, error) {
	path := rosterPath
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, "", err
		}
		path = cfg.Roster.Path
	}
	r, err := roster.Load(path)
	if err != nil {
		return nil, "", err
	}
	return r, path, nil
}
