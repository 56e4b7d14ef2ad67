// blocksecops-annotate runs the BlockSecOps scanner over a file or
// directory and prints normalized findings in editor-friendly formats.
// Editor plugins without a native SARIF pipeline shell out to it:
//
//	blocksecops-annotate run contracts/Vault.sol --format quickfix
//	blocksecops-annotate run . --format json --fail-on warning
//	blocksecops-annotate install
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/blocksecops/editor-sdk/pkg/adapters/quickfix"
	"github.com/blocksecops/editor-sdk/pkg/config"
	"github.com/blocksecops/editor-sdk/pkg/core"
	"github.com/blocksecops/editor-sdk/pkg/downloader"
	sdkerrors "github.com/blocksecops/editor-sdk/pkg/errors"
	"github.com/blocksecops/editor-sdk/pkg/finding"
	"github.com/blocksecops/editor-sdk/pkg/history"
	"github.com/blocksecops/editor-sdk/pkg/invoker"
	"github.com/blocksecops/editor-sdk/pkg/platform"
	"github.com/blocksecops/editor-sdk/pkg/sarif"
	"github.com/blocksecops/editor-sdk/pkg/shared/severity"
)

const (
	appName    = "blocksecops-annotate"
	appVersion = "1.0.0"
)

// Exit codes: 0 clean, 1 findings at or above --fail-on, 2 the scanner
// itself failed.
const (
	exitClean       = 0
	exitFindings    = 1
	exitToolFailure = 2
)

var (
	flagFileFilter string
	flagFormat     string
	flagScanSource string
	flagFailOn     string
	flagNoHistory  bool
	flagVerbose    bool
)

var rootCmd = &cobra.Command{
	Use:     appName,
	Short:   "Run the BlockSecOps scanner and normalize its SARIF output",
	Version: appVersion,
}

var runCmd = &cobra.Command{
	Use:   "run <path>",
	Short: "Scan a file or directory and print findings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runScan(cmd.Context(), args[0])
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <path>",
	Short: "Show recent scans for a file or directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return showHistory(cmd.Context(), args[0])
	},
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Download or update the blocksecops CLI",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return installCLI(cmd.Context())
	},
}

func init() {
	runCmd.Flags().StringVar(&flagFileFilter, "file-filter", "", "only keep findings for this file path")
	runCmd.Flags().StringVar(&flagFormat, "format", "quickfix", "output format: quickfix, json, or summary")
	runCmd.Flags().StringVar(&flagScanSource, "scan-source", string(platform.SourceCLI), "integration submitting the scan (cli, vscode, jetbrains, neovim, vim)")
	runCmd.Flags().StringVar(&flagFailOn, "fail-on", string(severity.Error), "exit 1 when findings at or above this severity exist")
	runCmd.Flags().BoolVar(&flagNoHistory, "no-history", false, "skip recording the scan in local history")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(runCmd, historyCmd, installCmd)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitToolFailure)
	}
}

func newLogger() core.Logger {
	level := core.LogLevelInfo
	if flagVerbose {
		level = core.LogLevelDebug
	}
	return core.NewDefaultLogger(appName, level)
}

func loadConfig(target string) (*config.Config, error) {
	root := target
	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		root = filepath.Dir(target)
	}
	opts := []config.Option{}
	if flagVerbose {
		opts = append(opts, config.WithVerbose(true))
	}
	return config.Load(root, opts...)
}

func runScan(ctx context.Context, target string) error {
	logger := newLogger()

	failOn := severity.FromString(flagFailOn)

	cfg, err := loadConfig(target)
	if err != nil {
		return err
	}

	inv := invoker.New(cfg.CLIPath, logger)
	if cfg.ScanTimeout > 0 {
		inv.Timeout = cfg.ScanTimeout
	}

	result, err := inv.Run(ctx, target)
	if err != nil {
		if sdkerrors.IsExecutableNotFound(err) {
			fmt.Fprintf(os.Stderr, "blocksecops CLI not found. Run %q to install it.\n", appName+" install")
		}
		return err
	}

	opts := &sarif.NormalizeOptions{FileFilter: flagFileFilter}
	normalized, err := sarif.ParseAndNormalize(result.Stdout, result.ExitCode, opts)
	if err != nil {
		if sdkerrors.IsParseError(err) {
			fmt.Fprintf(os.Stderr, "Warning: scanner output was not parseable: %v\n", err)
			normalized = &sarif.NormalizeResult{}
		} else {
			return err
		}
	}

	findings := normalized.Findings
	finding.Sort(findings)
	summary := finding.Summarize(findings)

	if !flagNoHistory {
		recordHistory(ctx, cfg, logger, target, result, findings)
	}
	submitResults(ctx, cfg, logger, target, result, findings, summary)

	if err := printFindings(findings, summary); err != nil {
		return err
	}

	if summary.Counts.AtOrAbove(failOn) > 0 {
		os.Exit(exitFindings)
	}
	return nil
}

func printFindings(findings []finding.Finding, summary finding.Summary) error {
	switch flagFormat {
	case "quickfix":
		for _, line := range quickfix.Format(findings) {
			fmt.Println(line)
		}
	case "json":
		out := struct {
			Findings []finding.Finding `json:"findings"`
			Summary  finding.Summary   `json:"summary"`
		}{findings, summary}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	case "summary":
		fmt.Printf("%d findings in %d files\n", summary.Counts.Total, summary.Files)
		fmt.Printf("  error:       %d\n", summary.Counts.Error)
		fmt.Printf("  warning:     %d\n", summary.Counts.Warning)
		fmt.Printf("  information: %d\n", summary.Counts.Information)
		fmt.Printf("  hint:        %d\n", summary.Counts.Hint)
	default:
		return fmt.Errorf("unknown format %q (use quickfix, json, or summary)", flagFormat)
	}
	return nil
}

func scopeFor(target string) core.Scope {
	abs, err := filepath.Abs(target)
	if err != nil {
		abs = target
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return core.WorkspaceScope(abs)
	}
	return core.FileScope(abs)
}

// recordHistory saves the scan locally. History failures never fail the
// scan itself.
func recordHistory(ctx context.Context, cfg *config.Config, logger core.Logger, target string, result *invoker.Result, findings []finding.Finding) {
	if cfg.HistoryPath == "" {
		return
	}
	store, err := history.Open(cfg.HistoryPath)
	if err != nil {
		logger.Warn("history unavailable: %v", err)
		return
	}
	defer store.Close()

	scope := scopeFor(target)
	rec := &history.Record{
		ID:       result.ScanID,
		ScopeKey: scope.Key(),
		Target:   target,
		Trigger:  core.TriggerManual,
		ExitCode: result.ExitCode,
		Duration: result.Duration,
		Findings: findings,
		RawSARIF: result.Stdout,
	}
	if err := store.Save(ctx, rec); err != nil {
		logger.Warn("record history: %v", err)
	}
}

// submitResults pushes the scan to the results API when one is
// configured. Upload failures never fail the scan itself.
func submitResults(ctx context.Context, cfg *config.Config, logger core.Logger, target string, result *invoker.Result, findings []finding.Finding, summary finding.Summary) {
	if cfg.APIURL == "" || cfg.APIKey == "" {
		return
	}

	source := platform.ScanSource(flagScanSource)
	if !source.Valid() {
		logger.Warn("invalid scan-source %q, not submitting", flagScanSource)
		return
	}

	client := platform.New(
		platform.WithBaseURL(cfg.APIURL),
		platform.WithAPIKey(cfg.APIKey),
		platform.WithLogger(logger),
	)

	rec, err := client.CreateScan(ctx, &platform.CreateScanRequest{
		Target:        target,
		ScanSource:    source,
		ClientVersion: appVersion,
	})
	if err != nil {
		logger.Warn("create remote scan: %v", err)
		return
	}

	_, err = client.SubmitFindings(ctx, rec.ID, &platform.SubmitFindingsRequest{
		ExitCode: result.ExitCode,
		Findings: findings,
		Summary:  summary,
	})
	if err != nil {
		logger.Warn("submit findings: %v", err)
		return
	}
	logger.Info("submitted %d findings as scan %s", len(findings), rec.ID)
}

func showHistory(ctx context.Context, target string) error {
	cfg, err := loadConfig(target)
	if err != nil {
		return err
	}

	if cfg.HistoryPath == "" {
		return fmt.Errorf("history is disabled (set history_path in %s)", config.DefaultFileName)
	}
	store, err := history.Open(cfg.HistoryPath)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Recent(ctx, scopeFor(target).Key(), 10)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No scans recorded for this target.")
		return nil
	}

	for _, rec := range records {
		fmt.Printf("%s  %-9s exit=%d  %d findings\n",
			rec.CreatedAt.Local().Format(time.RFC3339), rec.Trigger, rec.ExitCode, len(rec.Findings))
	}
	return nil
}

func installCLI(ctx context.Context) error {
	logger := newLogger()

	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	installDir := filepath.Join(home, ".blocksecops", "bin")

	d := downloader.New(installDir,
		downloader.WithToken(os.Getenv("GITHUB_TOKEN")),
		downloader.WithLogger(logger),
	)

	path, err := d.EnsureLatest(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("blocksecops %s installed at %s\n", d.InstalledVersion(), path)
	fmt.Printf("Add %s to your PATH, or set cli_path in %s.\n", installDir, config.DefaultFileName)
	return nil
}
