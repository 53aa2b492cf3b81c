package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/weiihann/stackbench/config"
)

func newTargetsCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "targets",
		Short: "Validate the targets file and list its targets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, err := config.Load(path)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Name", "Stack", "Command", "Dir", "Load", "Duration"})

			for _, target := range file.Targets {
				load, err := target.LoadArguments()
				if err != nil {
					return err
				}

				t.AppendRow(table.Row{
					target.Name,
					target.Stack,
					strings.Join(append([]string{target.Command}, target.Args...), " "),
					target.Dir,
					strings.Join(append([]string{target.LoadCommand}, load...), " "),
					target.RunDuration(),
				})
			}

			t.SetStyle(table.StyleRounded)
			t.Render()

			fmt.Fprintf(cmd.ErrOrStderr(), "%d targets OK\n", len(file.Targets))

			return nil
		},
	}

	cmd.Flags().StringVar(&path, "targets", "targets.toml", "Path to the targets file")

	return cmd
}
