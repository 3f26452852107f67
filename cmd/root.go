// cmd/root.go

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/checks"
	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/config"
	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/logger"
	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/pvesh"
	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/report"
	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/squelch"
	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/utils"
)

// autoReport is the --report value used when the flag is given without a path
const autoReport = "auto"

// Replaced in tests
var (
	newExecutor = func() (utils.CommandExecutor, error) {
		return utils.NewLocalExecutor()
	}
	dumpFs = func(root string) afero.Fs {
		if root == "" {
			return afero.NewOsFs()
		}
		return afero.NewBasePathFs(afero.NewOsFs(), root)
	}
	now = time.Now
)

type rootOptions struct {
	configFile string
	verbose    bool
	reportFile string
	progress   bool

	exitCode int
}

// Execute runs the command line and returns the process exit code
func Execute() int {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	opts := &rootOptions{}
	rootCmd := newRootCmd(opts)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	executed, err := rootCmd.ExecuteC()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintf(stderr, "Hint: %s\n", hint)
		}
		if executed == rootCmd {
			return report.WriteUnknown(stdout, err)
		}
		return report.ExitUnknown
	}
	return opts.exitCode
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check_proxmox [backup|not-backup]",
		Short: "Proxmox VE cluster configuration check",
		Long: `A monitoring plugin that inspects a Proxmox VE cluster through pvesh and
reports guests, storage and backup jobs that diverge from the expected
configuration. With "backup" only the backup checks run, with "not-backup"
everything else; without an argument all checks run.`,
		ValidArgs:     []string{string(checks.AreaBackup), string(checks.AreaNotBackup)},
		Args:          cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProxmoxChecks(cmd, opts, args)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configFile, "config", "c", config.DefaultPath, "INI configuration file")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging on stderr")
	pf.String("pvesh", pvesh.DefaultBinary, "pvesh executable")
	pf.Bool("old-pvesh", false, "Do not pass --output-format=json to pvesh")

	f := cmd.Flags()
	f.String("squelch", squelch.Default, "Comma separated issues to suppress, name[@key=value;...]")
	f.Bool("all-nodes", false, "Check the guests of every cluster node, not only the local one")
	f.String("dump-root", "", "Directory prepended to backup storage paths")
	f.StringVarP(&opts.reportFile, "report", "r", "", "Also write an AsciiDoc report (--report=<file>, or alone for a generated name)")
	f.Lookup("report").NoOptDefVal = autoReport
	f.BoolVarP(&opts.progress, "progress", "p", false, "Show check progress on stderr")

	cmd.AddCommand(newInventoryCmd(opts))
	cmd.AddCommand(newPfsenseCmd())
	cmd.AddCommand(newRenderCmd())
	return cmd
}

// loadRuntime resolves the configuration of the command and builds its logger
func loadRuntime(cmd *cobra.Command, opts *rootOptions) (*config.Config, *zap.Logger, error) {
	v := config.NewViper()
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(v, opts.configFile)
	if err != nil {
		return nil, nil, err
	}

	log := logger.New(opts.verbose, cmd.ErrOrStderr())
	if cfg.Source != "" {
		log.Debug("Configuration loaded", zap.String("file", cfg.Source))
	}
	return cfg, log, nil
}

// newClient creates the pvesh client for a resolved configuration
func newClient(cfg *config.Config, log *zap.Logger) (*pvesh.Client, utils.CommandExecutor, error) {
	exec, err := newExecutor()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create local executor")
	}

	if !utils.IsProxmoxNode(cfg.Pvesh) {
		log.Warn("pvesh not found in PATH, this does not look like a Proxmox VE node", zap.String("pvesh", cfg.Pvesh))
	}

	mode := pvesh.OutputJSON
	if cfg.OldPvesh {
		mode = pvesh.OutputLegacy
	}
	client := pvesh.NewClient(exec, pvesh.Options{
		Binary:   cfg.Pvesh,
		Mode:     mode,
		AllNodes: cfg.AllNodes,
		Logger:   log,
	})
	return client, exec, nil
}

// runProxmoxChecks runs the checks of the selected area and prints the plugin result
func runProxmoxChecks(cmd *cobra.Command, opts *rootOptions, args []string) error {
	area := checks.AreaAll
	if len(args) == 1 {
		var err error
		if area, err = checks.ParseArea(args[0]); err != nil {
			return err
		}
	}

	cfg, log, err := loadRuntime(cmd, opts)
	if err != nil {
		return err
	}
	defer log.Sync()

	if !utils.RunningAsRoot() {
		log.Warn("Not running as root, backup dump directories may be unreadable")
	}

	rules, err := cfg.SquelchRules()
	if err != nil {
		return err
	}

	client, exec, err := newClient(cfg, log)
	if err != nil {
		return err
	}
	defer client.Close()

	env := &checks.Env{
		Source: client,
		Fs:     dumpFs(cfg.DumpRoot),
		Now:    now,
		Logger: log,
	}

	selected := checks.ChecksFor(area)
	startTime := now()

	var issues []checks.Issue
	runChecks(cmd.ErrOrStderr(), opts.progress, len(selected), func(progress func(checks.Check)) {
		issues, err = checks.Run(env, selected, progress)
	})
	if err != nil {
		return err
	}

	surviving := squelch.Filter(issues, rules)
	log.Debug("Checks completed",
		zap.String("area", string(area)),
		zap.Int("issues", len(issues)),
		zap.Int("squelched", len(issues)-len(surviving)),
		zap.Int("pvesh_calls", client.CacheSize()),
		zap.Duration("elapsed", now().Sub(startTime)))

	if opts.reportFile != "" {
		if err := writeReport(cmd.ErrOrStderr(), opts.reportFile, exec.GetHostname(), selected, issues, surviving); err != nil {
			log.Warn("Report not written", zap.Error(err))
		}
	}

	opts.exitCode = report.WritePluginOutput(cmd.OutOrStdout(), issues, surviving)
	return nil
}

// runChecks runs fn with a progress callback, drawing a progress bar on w when enabled
func runChecks(w io.Writer, enabled bool, totalChecks int, fn func(progress func(checks.Check))) {
	if !enabled {
		fn(nil)
		return
	}

	bar := progressbar.NewOptions(totalChecks,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetDescription("[cyan]Running Proxmox health checks[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	fn(func(c checks.Check) {
		bar.Describe(fmt.Sprintf("[cyan]%s[reset]", c.Name))
		_ = bar.Add(1)
	})

	_ = bar.Clear()
}

// writeReport renders the AsciiDoc report and its JSON data file
func writeReport(w io.Writer, path, hostname string, selected []checks.Check, all, surviving []checks.Issue) error {
	if path == autoReport {
		path = generateDefaultOutputFilename(hostname)
	}

	r := report.NewAsciiDocReport(path)
	r.GeneratedAt = now()
	r.Initialize(hostname, "Proxmox Health Check Report")
	for _, c := range selected {
		r.AddCheckRun(c.Name)
	}
	r.AddIssues(all, surviving)

	outputPath, err := r.Generate()
	if err != nil {
		return errors.Wrap(err, "failed to generate report")
	}
	if _, err := report.SaveReportData(r); err != nil {
		return err
	}

	finalPath, err := compressReportIfNeeded(w, outputPath)
	if err != nil {
		fmt.Fprintf(w, "Warning: %v\n", err)
	}
	fmt.Fprintf(w, "Report saved to: %s\n", finalPath)
	return nil
}

// generateDefaultOutputFilename generates a report path from the hostname and time
func generateDefaultOutputFilename(hostname string) string {
	if hostname == "" {
		hostname = "unknown-host"
	}
	timestamp := now().Format("20060102-150405")

	outputDir := "reports"
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		outputDir = "."
	}

	return filepath.Join(outputDir, fmt.Sprintf("%s-proxmox-health-check-%s.adoc",
		sanitizeFilename(hostname), timestamp))
}

// sanitizeFilename removes or replaces characters that are problematic in filenames
func sanitizeFilename(filename string) string {
	replacer := strings.NewReplacer(
		"/", "-",
		"\\", "-",
		":", "-",
		"*", "",
		"?", "",
		"\"", "",
		"<", "",
		">", "",
		"|", "-",
		" ", "_",
	)
	return replacer.Replace(filename)
}

// compressReportIfNeeded compresses the report based on environment variables
func compressReportIfNeeded(w io.Writer, reportPath string) (string, error) {
	compress := os.Getenv("COMPRESS_REPORT")
	if compress != "true" && compress != "1" {
		return reportPath, nil
	}

	password := os.Getenv("REPORT_PASSWORD")
	if password == "" {
		return reportPath, errors.WithHint(
			errors.New("report not compressed: REPORT_PASSWORD is empty"),
			"export REPORT_PASSWORD together with COMPRESS_REPORT")
	}

	compressedPath, err := utils.CompressWithPassword(reportPath, password)
	if err != nil {
		return reportPath, errors.Wrap(err, "failed to compress report")
	}

	if os.Getenv("REMOVE_UNCOMPRESSED") == "true" {
		if err := os.Remove(reportPath); err != nil {
			fmt.Fprintf(w, "Warning: could not remove %s: %v\n", reportPath, err)
		}
	}
	return compressedPath, nil
}
