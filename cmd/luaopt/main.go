package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/scriptmaint/luaopt/internal/backup"
	"github.com/scriptmaint/luaopt/internal/config"
	"github.com/scriptmaint/luaopt/internal/discover"
	"github.com/scriptmaint/luaopt/internal/report"
	"github.com/scriptmaint/luaopt/internal/runner"
	"github.com/scriptmaint/luaopt/internal/version"
)

// loadConfigWithOverrides loads configuration and applies CLI flag overrides.
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	configPath := c.String("config")

	root := c.Args().First()
	if root != "" && configPath == ".luaopt.toml" {
		if info, err := os.Stat(root); err == nil && info.IsDir() {
			configPath = filepath.Join(root, ".luaopt.toml")
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if root != "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve path %q: %w", root, err)
		}
		cfg.Project.Root = abs
	}
	if c.Bool("direct") {
		cfg.Project.Direct = true
	}
	if c.IsSet("workers") {
		cfg.Performance.Workers = c.Int("workers")
	}
	if c.IsSet("timeout") {
		cfg.Performance.FileTimeoutSec = c.Int("timeout")
	}
	if c.IsSet("threshold") {
		cfg.Analysis.CacheThreshold = c.Int("threshold")
	}
	if c.Bool("no-backup") {
		cfg.Backup.Enabled = false
	} else if c.IsSet("backup") {
		cfg.Backup.Enabled = c.Bool("backup")
	}
	if excludeFile := c.String("exclude"); excludeFile != "" {
		patterns, err := readExcludeFile(excludeFile)
		if err != nil {
			return nil, err
		}
		cfg.Exclude = append(cfg.Exclude, patterns...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readExcludeFile reads glob patterns, one per line; blank lines and lines
// starting with # are ignored.
func readExcludeFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read exclude file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, scanner.Err()
}

func policyFromContext(c *cli.Context) config.FixPolicy {
	return config.PolicyFromFlags(
		c.Bool("fix"),
		c.Bool("fix-yellow"),
		c.Bool("fix-debug"),
		c.Bool("fix-nil"),
		c.Bool("remove-dead-code"),
		c.Bool("experimental"),
	)
}

func newApp() *cli.App {
	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Fprintln(c.App.Writer, version.FullInfo())
	}
	return &cli.App{
		Name:                   "luaopt",
		Usage:                  "Performance linter and auto-fixer for FiveM Lua scripts",
		ArgsUsage:              "[path]",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path",
				Value:   ".luaopt.toml",
			},
			&cli.BoolFlag{
				Name:  "fix",
				Usage: "Apply safe (GREEN) fixes",
			},
			&cli.BoolFlag{
				Name:  "fix-yellow",
				Usage: "Apply review-grade (YELLOW) fixes, implies --fix",
			},
			&cli.BoolFlag{
				Name:  "fix-debug",
				Usage: "Comment out debug/log statements",
			},
			&cli.BoolFlag{
				Name:  "fix-nil",
				Usage: "Insert nil guards before unguarded accesses (needs --experimental)",
			},
			&cli.BoolFlag{
				Name:  "remove-dead-code",
				Usage: "Remove unreachable code (needs --experimental)",
			},
			&cli.BoolFlag{
				Name:  "experimental",
				Usage: "Enable experimental detections and fixes",
			},
			&cli.BoolFlag{
				Name:  "backup",
				Usage: "Create .bak files before writing (default on)",
			},
			&cli.BoolFlag{
				Name:  "no-backup",
				Usage: "Skip backups entirely",
			},
			&cli.BoolFlag{
				Name:  "archive",
				Usage: "Zip every script before a fixing run",
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Write a report to FILE (.json, .html or text)",
			},
			&cli.IntFlag{
				Name:  "timeout",
				Usage: "Per-file analysis budget in seconds",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"j"},
				Usage:   "Concurrent file workers (0 = all CPUs)",
			},
			&cli.IntFlag{
				Name:  "threshold",
				Usage: "Repeated-call count that triggers caching",
			},
			&cli.BoolFlag{
				Name:  "direct",
				Usage: "Treat path as a plain script tree, skip resource detection",
			},
			&cli.StringFlag{
				Name:  "exclude",
				Usage: "File of glob patterns to exclude, one per line",
			},
			&cli.BoolFlag{
				Name:  "revert",
				Usage: "Restore every .bak backup under path and exit",
			},
			&cli.BoolFlag{
				Name:  "list-backups",
				Usage: "List .bak backups under path and exit",
			},
			&cli.BoolFlag{
				Name:  "clean-backups",
				Usage: "Delete .bak backups under path and exit",
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "Exit nonzero on findings, parse errors or timeouts",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Show clean files and per-file timing",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Summary only",
			},
		},
		Action: analyzeCommand,
		Commands: []*cli.Command{
			{
				Name:      "watch",
				Usage:     "Re-analyze scripts as they change",
				ArgsUsage: "[path]",
				Action:    watchCommand,
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func analyzeCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	backups := backup.NewManager(cfg.Backup.Suffix, cfg.Backup.Enabled)
	switch {
	case c.Bool("revert"):
		return revertBackups(backups, cfg.Project.Root)
	case c.Bool("list-backups"):
		return listBackups(backups, cfg.Project.Root)
	case c.Bool("clean-backups"):
		return cleanBackups(backups, cfg.Project.Root)
	}

	resources, err := discover.Discover(discover.Options{
		Root:         cfg.Project.Root,
		Direct:       cfg.Project.Direct,
		Excludes:     cfg.Exclude,
		BackupSuffix: cfg.Backup.Suffix,
	})
	if err != nil {
		return err
	}
	files := discover.Files(resources)
	if len(files) == 0 {
		fmt.Println("No Lua scripts found.")
		return nil
	}
	if !c.Bool("quiet") {
		fmt.Printf("Found %d resource(s), %d script(s)\n\n", len(resources), len(files))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	policy := policyFromContext(c)
	if c.Bool("archive") && policy.Fixing() {
		archive, err := backup.BulkSnapshot(cfg.Project.Root, files)
		if err != nil {
			return err
		}
		if !c.Bool("quiet") {
			fmt.Printf("Archived scripts to %s\n", archive)
		}
	}

	start := time.Now()
	results, err := runner.New(cfg, policy, backups).Run(ctx, files)
	if err != nil {
		return err
	}

	summary := report.Summarize(results, time.Since(start))
	report.Console(os.Stdout, summary, c.Bool("verbose"), c.Bool("quiet"))

	if out := c.String("report"); out != "" {
		if err := report.WriteFile(out, summary); err != nil {
			return err
		}
		if !c.Bool("quiet") {
			fmt.Printf("\nReport written to %s\n", out)
		}
	}

	if summary.WriteFailures > 0 {
		return cli.Exit("", 1)
	}
	// Parse errors and timeouts are per-file outcomes; they only fail the
	// run when strict mode asks for it.
	if c.Bool("strict") && (summary.ParseErrors > 0 || summary.Timeouts > 0 || summary.Findings() > 0) {
		return cli.Exit("", 1)
	}
	return nil
}

func watchCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backups := backup.NewManager(cfg.Backup.Suffix, cfg.Backup.Enabled)
	r := runner.New(cfg, policyFromContext(c), backups)

	fmt.Printf("Watching %s (ctrl-c to stop)\n", cfg.Project.Root)
	err = r.Watch(ctx, cfg.Project.Root, func(res runner.FileResult) {
		summary := report.Summarize([]runner.FileResult{res}, res.Duration)
		report.Console(os.Stdout, summary, false, false)
	})
	if err == context.Canceled {
		return nil
	}
	return err
}

func revertBackups(backups *backup.Manager, root string) error {
	n, err := backups.RevertAll(root)
	if err != nil {
		return fmt.Errorf("reverted %d file(s), then: %w", n, err)
	}
	fmt.Printf("Reverted %d file(s)\n", n)
	return nil
}

func listBackups(backups *backup.Manager, root string) error {
	records, err := backups.List(root)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No backups found.")
		return nil
	}
	for _, rec := range records {
		fmt.Printf("%s  (%d bytes, %s)\n", rec.Backup, rec.Size, rec.Taken.Format(time.RFC3339))
	}
	return nil
}

func cleanBackups(backups *backup.Manager, root string) error {
	n, err := backups.Clean(root)
	if err != nil {
		return fmt.Errorf("removed %d backup(s), then: %w", n, err)
	}
	fmt.Printf("Removed %d backup(s)\n", n)
	return nil
}
