package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newScrapAllCmd creates the 'scrap-all' subcommand, which runs every site in turn.
func newScrapAllCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "scrap-all",
		Short: "Crawl every configured site",
		Long: `Runs every site in the sites file sequentially, ordered by name. A failing
site is logged and the batch continues; the command fails at the end if any
site failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			o, err := flags.overrides(cmd)
			if err != nil {
				return err
			}
			jobs, buildErr := appInstance.Jobs(o)
			results, runErr := appInstance.GetRunner().RunAll(cmd.Context(), jobs)

			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
				}
			}
			appInstance.GetLogger().Info("scrap-all command finished",
				zap.Int("sites", len(results)),
				zap.Int("failed", failed),
			)
			return errors.Join(buildErr, runErr)
		},
	}
	flags.register(cmd, false)
	return cmd
}
