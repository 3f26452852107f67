// cmd/pfsense.go

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/pfsense"
)

// newPfsenseCmd creates the pfSense rule export subcommand
func newPfsenseCmd() *cobra.Command {
	var (
		includeAutomated bool
		outputFile       string
	)

	cmd := &cobra.Command{
		Use:   "pfsense-rules <config.xml>",
		Short: "Export pfSense filter rules as YAML grouped by interface",
		Long: `Reads a pfSense config.xml backup and writes its filter rules as YAML,
grouped by interface. Automatically generated rules are skipped unless
--include-automated is given; pfBlockerNG rules are always skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := os.Open(args[0])
			if err != nil {
				return errors.Wrapf(err, "opening %s", args[0])
			}
			defer in.Close()

			rules, err := pfsense.Parse(in, pfsense.Options{IncludeAutomated: includeAutomated})
			if err != nil {
				return err
			}

			data, err := rules.YAML()
			if err != nil {
				return err
			}

			path := outputFile
			if path == "" {
				path = filepath.Join(os.TempDir(),
					fmt.Sprintf("rules_%s.%s_%d.yml", rules.Hostname, rules.Domain, now().Unix()))
			}
			if err := os.WriteFile(path, data, 0644); err != nil {
				return errors.Wrapf(err, "writing %s", path)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Rules written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&includeAutomated, "include-automated", false, "Keep rules whose description starts with (M)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default /tmp/rules_<host>.<domain>_<unix>.yml)")
	return cmd
}
