package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"startctl/internal/app"
	"startctl/internal/config"
	"startctl/internal/startup"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	app.LoadEnv()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to defaults when it is missing.
func loadConfig() (*config.Config, string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.Load(defaults["config_path"], defaults["base_dir"])
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults["config_path"], nil
}

// newApp reads the config, creates a StartApp and scans every source.
// The caller must defer a.Close().
func newApp(operation string, args []string) (*app.StartApp, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewStartApp(cfg, operation, strings.Join(args, " "), version, app.Options{})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	a.Refresh()
	return a, nil
}

// unlock prompts for the backup passphrase when backups are encrypted.
// STARTCTL_PASSPHRASE skips the prompt.
func unlock(a *app.StartApp) error {
	if !a.Encrypted() {
		return nil
	}
	pass, err := readPassphrase("Backup passphrase: ")
	if err != nil {
		return err
	}
	return a.Unlock(pass)
}

func readPassphrase(prompt string) (string, error) {
	if p := os.Getenv("STARTCTL_PASSPHRASE"); p != "" {
		return p, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("passphrase required: set STARTCTL_PASSPHRASE or run in a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

var rootCmd = &cobra.Command{
	Use:          "startctl",
	Short:        "Inspect and toggle Windows autostart entries",
	Version:      version,
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Log Level:   %s\n", cfg.Log.Level)
		fmt.Printf("Backups:     %s %s\n", cfg.Backup.Type, cfg.Backup.Dir)
		fmt.Printf("Encryption:  %s\n", cfg.Encryption.Type)
		fmt.Printf("Sources:     %s\n", strings.Join(cfg.Sources.Enabled, ", "))
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage backup encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a passphrase-protected key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := app.NewStartApp(cfg, "KeysInit", "", version, app.Options{})
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		defer a.Close()

		pass, err := readPassphrase("New passphrase: ")
		if err != nil {
			return err
		}
		if os.Getenv("STARTCTL_PASSPHRASE") == "" {
			confirm, err := readPassphrase("Confirm passphrase: ")
			if err != nil {
				return err
			}
			if confirm != pass {
				return errors.New("passphrases do not match")
			}
		}

		if err := a.SetupKeys(pass); err != nil {
			return err
		}
		fmt.Printf("Keys written to %s and %s\n", cfg.Encryption.PublicKeyPath, cfg.Encryption.PrivateKeyPath)
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list [QUERY]",
	Short: "List autostart entries",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, _ := cmd.Flags().GetString("source")
		all, _ := cmd.Flags().GetBool("all")

		a, err := newApp("List", args)
		if err != nil {
			return err
		}
		defer a.Close()

		query := ""
		if len(args) > 0 {
			query = args[0]
		}
		entries, err := a.List(query, source)
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No entries found.")
			return nil
		}

		svc := a.Service()
		var current startup.SourceType
		for _, e := range entries {
			if e.SourceType != current {
				current = e.SourceType
				fmt.Printf("\n%s\n", current.DisplayName())
			}
			command := e.DisplayCommand()
			if all {
				command = e.Command
			}
			fmt.Printf("  %s  %s  %-30s  %s\n", e.ID[:8], statusIndicator(svc, e), e.Name, command)
		}
		if !svc.IsElevated() {
			fmt.Println("\nNot elevated: entries marked * need administrator rights to change.")
		}
		return nil
	},
}

func statusIndicator(svc *startup.Service, e *startup.Entry) string {
	mark := " "
	if e.RequiresAdmin && !svc.IsElevated() {
		mark = "*"
	}
	switch e.Status {
	case startup.StatusEnabled:
		return "on " + mark
	case startup.StatusDisabled:
		return "off" + mark
	}
	return "?  " + mark
}

// show command
var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one entry in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Show", args)
		if err != nil {
			return err
		}
		defer a.Close()

		e, err := a.Service().Resolve(args[0])
		if err != nil {
			a.Fail(err)
			return err
		}

		fmt.Printf("ID:          %s\n", e.ID)
		fmt.Printf("Name:        %s\n", e.Name)
		fmt.Printf("Source:      %s\n", e.SourceType.DisplayName())
		fmt.Printf("Location:    %s\n", e.SourceLocation)
		fmt.Printf("Status:      %s\n", e.Status)
		fmt.Printf("Command:     %s\n", e.Command)
		fmt.Printf("Executable:  %s\n", e.DisplayPath())
		fmt.Printf("File exists: %t\n", e.FileExists)
		fmt.Printf("Admin only:  %t\n", e.RequiresAdmin)
		if e.Publisher != "" {
			fmt.Printf("Publisher:   %s\n", e.Publisher)
		}
		if e.Description != "" {
			fmt.Printf("Description: %s\n", e.Description)
		}
		return nil
	},
}

// change commands
func newChangeCmd(use, short, operation string, target startup.Status) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " ID...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			a, err := newApp(operation, args)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Stage(args, target); err != nil {
				if a.Service().PendingCount() == 0 {
					return err
				}
				fmt.Fprintf(os.Stderr, "Some entries were skipped: %v\n", err)
			}

			printPending(a.Service())
			if dryRun {
				a.Service().DiscardAll()
				return nil
			}
			return apply(a)
		},
	}
	cmd.Flags().Bool("dry-run", false, "Print the staged changes without applying them")
	return cmd
}

func printPending(svc *startup.Service) {
	pending := svc.Pending()
	if len(pending) == 0 {
		fmt.Println("Nothing to change.")
		return
	}
	fmt.Printf("%d pending change(s):\n", len(pending))
	for _, p := range pending {
		e := svc.Entry(p.EntryID)
		fmt.Printf("  %s  %-30s  %s -> %s\n", p.EntryID[:8], e.Name, p.PreviousStatus, p.RequestedStatus)
	}
}

func apply(a *app.StartApp) error {
	report, err := a.Apply()
	if errors.Is(err, startup.ErrNothingToApply) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("apply failed: %w", err)
	}

	fmt.Printf("Backup: %s\n", report.BackupPath)
	fmt.Printf("Applied %d of %d change(s)\n", report.Succeeded, report.Total)
	for _, f := range report.Failures {
		fmt.Fprintf(os.Stderr, "  failed to %s %s: %v\n", verb(f.Requested), f.Entry.Name, f.Err)
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d change(s) failed", report.Failed)
	}
	return nil
}

func verb(s startup.Status) string {
	if s == startup.StatusDisabled {
		return "disable"
	}
	return "enable"
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage snapshots of the autostart state",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Snapshot every entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		message, _ := cmd.Flags().GetString("message")

		a, err := newApp("BackupCreate", args)
		if err != nil {
			return err
		}
		defer a.Close()

		path, err := a.CreateBackup(message)
		if err != nil {
			return err
		}
		fmt.Printf("Backed up %d entries to %s\n", len(a.Service().Entries()), path)
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("BackupList", args)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := unlock(a); err != nil {
			return err
		}
		files, err := a.ListBackups()
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Println("No backups.")
			return nil
		}
		for _, f := range files {
			fmt.Printf("%s  %4d  %-30s  %s\n",
				f.Snapshot.Timestamp.Local().Format("2006-01-02 15:04:05"),
				len(f.Snapshot.Items),
				f.Snapshot.Description,
				f.Path,
			)
		}
		return nil
	},
}

var backupShowCmd = &cobra.Command{
	Use:   "show PATH|latest",
	Short: "Show the entries recorded in a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("BackupShow", args)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := unlock(a); err != nil {
			return err
		}
		f, err := a.LoadBackup(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s\n%s (version %s)\n\n", f.Path, f.Snapshot.Timestamp.Local().Format("2006-01-02 15:04:05"), f.Snapshot.Version)
		for _, e := range f.Snapshot.Items {
			fmt.Printf("  %-8s  %-20s  %-30s  %s\n", e.Status, e.SourceType.ShortName(), e.Name, e.DisplayCommand())
		}
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore PATH|latest",
	Short: "Show, and with --apply make, the changes that return to a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doApply, _ := cmd.Flags().GetBool("apply")

		a, err := newApp("BackupRestore", args)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := unlock(a); err != nil {
			return err
		}
		f, err := a.LoadBackup(args[0])
		if err != nil {
			return err
		}

		for _, item := range a.Service().RestorePlan(f.Snapshot) {
			switch item.Action {
			case startup.RestoreChange:
				fmt.Printf("  change   %-30s  %s -> %s\n", item.Recorded.Name, item.Current.Status, item.Recorded.Status)
			case startup.RestoreMissing:
				fmt.Printf("  missing  %-30s  (%s)\n", item.Recorded.Name, item.Recorded.SourceType.ShortName())
			}
		}

		n, stageErr := a.StageRestore(f.Snapshot)
		if stageErr != nil {
			fmt.Fprintf(os.Stderr, "Some entries cannot be restored: %v\n", stageErr)
		}
		if n == 0 {
			fmt.Println("Nothing to restore.")
			return stageErr
		}
		if !doApply {
			fmt.Printf("%d change(s) staged; rerun with --apply to make them.\n", n)
			return stageErr
		}
		if err := apply(a); err != nil {
			return err
		}
		return stageErr
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)

	// backup subcommands
	backupCmd.AddCommand(backupCreateCmd)
	backupCreateCmd.Flags().StringP("message", "m", "", "Description stored with the snapshot")
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupShowCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	backupRestoreCmd.Flags().Bool("apply", false, "Apply the staged changes")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringP("source", "s", "", "Only list entries of this source type (key or short name)")
	listCmd.Flags().BoolP("all", "a", false, "Print full commands")
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(newChangeCmd("enable", "Enable entries", "Enable", startup.StatusEnabled))
	rootCmd.AddCommand(newChangeCmd("disable", "Disable entries", "Disable", startup.StatusDisabled))
	rootCmd.AddCommand(newChangeCmd("toggle", "Flip entries between enabled and disabled", "Toggle", startup.StatusUnknown))
}
