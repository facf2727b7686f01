package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"carpet-studio/internal/prompt"
)

func (c *cli) promptCmd() *cobra.Command {
	var variant string

	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print the prompts the saved settings would send",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			id := c.app.Studio.NewSession(ctx)
			defer c.app.Sessions.Delete(id)

			a, b, err := c.app.Studio.Prompts(ctx, id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch strings.ToUpper(variant) {
			case prompt.LabelA:
				fmt.Fprintln(out, a)
			case prompt.LabelB:
				fmt.Fprintln(out, b)
			case "":
				fmt.Fprintf(out, "# Variant A\n%s\n\n# Variant B\n%s\n", a, b)
			default:
				return fmt.Errorf("unknown variant %q, use A or B", variant)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&variant, "variant", "", "print only variant A or B")
	return cmd
}
