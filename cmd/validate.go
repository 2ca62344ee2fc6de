package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// newValidateCmd creates the 'validate' subcommand.
func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check every site definition without crawling",
		Long: `Validates each site's XPath expressions, resource type and repository
configuration. Nothing is fetched and no store is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			store, err := appInstance.Sites()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			var errs []error
			for _, site := range store.List() {
				if err := appInstance.ValidateSite(site); err != nil {
					errs = append(errs, fmt.Errorf("site %s: %w", site.Name, err))
					fmt.Fprintf(out, "%s: %v\n", site.Name, err)
					continue
				}
				fmt.Fprintf(out, "%s: ok\n", site.Name)
			}
			return errors.Join(errs...)
		},
	}
}
