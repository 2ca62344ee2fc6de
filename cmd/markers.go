package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/scrapper/internal/crawler"
)

// newMarkersCmd groups operator tooling over the page marker store.
func newMarkersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "markers",
		Short: "Inspect and prune visited-page markers",
		Long: `Patterns are globs over the page URI: '*' matches any run of characters
and '?' matches exactly one.`,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print every marked page URI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			markers, err := appInstance.GetMarkers().List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list markers: %w", err)
			}
			return printMarkers(cmd, markers)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "search <pattern>",
		Short: "Print marked page URIs matching a pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			markers, err := appInstance.GetMarkers().Search(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("search markers: %w", err)
			}
			return printMarkers(cmd, markers)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <pattern>",
		Short: "Forget marked pages matching a pattern so the next run revisits them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			n, err := appInstance.GetMarkers().Delete(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("delete markers: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d marker(s)\n", n)
			return err
		},
	})
	return cmd
}

func printMarkers(cmd *cobra.Command, markers []crawler.PageMarker) error {
	out := cmd.OutOrStdout()
	for _, m := range markers {
		if _, err := fmt.Fprintln(out, m.URI); err != nil {
			return err
		}
	}
	return nil
}
