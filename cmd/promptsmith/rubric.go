package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teilomillet/promptsmith/rubric"
)

func newRubricCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rubric",
		Short: "Print the default rubric, its JSON schema, or check a rubric file",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "default",
			Short: "Print the built-in rubric",
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := cmd.OutOrStdout().Write(rubric.DefaultJSON())
				return err
			},
		},
		&cobra.Command{
			Use:   "schema",
			Short: "Print the JSON schema rubric files must follow",
			RunE: func(cmd *cobra.Command, args []string) error {
				schema, err := rubric.Schema()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(schema))
				return nil
			},
		},
		&cobra.Command{
			Use:   "check <file>",
			Short: "Validate a rubric file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				r, err := rubric.Load(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d criteria, max score %g\n", args[0], len(r.Rubric), r.MaxScore())
				return nil
			},
		},
	)
	return cmd
}
