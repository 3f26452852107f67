// cmd/render.go

package cmd

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/report"
)

// newRenderCmd creates the subcommand that rebuilds a report from its saved findings
func newRenderCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "render-report <report.adoc>",
		Short: "Regenerate an AsciiDoc report from its saved findings",
		Long: `Reads the findings stored in .data/<report>.adoc.json next to a report
written with --report and renders the AsciiDoc report again, without
querying the cluster. Useful when the report was compressed and removed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := report.LoadReportData(args[0])
			if err != nil {
				return errors.WithHint(err, "the report must have been written with --report on this machine")
			}
			if outputFile != "" {
				r.OutputPath = outputFile
			}

			outputPath, err := r.Generate()
			if err != nil {
				return errors.Wrap(err, "failed to generate report")
			}

			w := cmd.ErrOrStderr()
			finalPath, err := compressReportIfNeeded(w, outputPath)
			if err != nil {
				cmd.PrintErrf("Warning: %v\n", err)
			}
			cmd.PrintErrf("Report saved to: %s\n", finalPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the regenerated report here instead of over the original")
	return cmd
}
