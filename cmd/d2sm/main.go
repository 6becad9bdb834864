package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"d2sm/internal/app"
	"d2sm/internal/character"
	"d2sm/internal/config"
	"d2sm/internal/d2s"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// readConfig loads the config file named by the defaults.
func readConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation names the CLI command being run (e.g. "Import", "Archive").
func newApp(cmd *cobra.Command, operation string) (*app.App, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewApp(cmd.Context(), cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "d2sm",
	Short:        "Diablo II save manager",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		hostID := uuid.New().String()
		cfg := config.NewConfig(hostID, defaults.BaseDir)

		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("Host ID: %s\n", hostID)
		fmt.Printf("Base Dir: %s\n", defaults.BaseDir)
		fmt.Println("Run 'd2sm migrate' to create the database.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults.ConfigPath)
		fmt.Printf("Host ID:    %s\n", cfg.HostID)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Database:   %s\n", cfg.Database.Type)
		fmt.Printf("Vault:      %s (%s)\n", cfg.Vault.Name, cfg.Vault.Type)
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		if len(cfg.Archive.Ignore) > 0 {
			fmt.Printf("Ignore:     %s\n", strings.Join(cfg.Archive.Ignore, ", "))
		}
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate the encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		passphrase, err := readNewPassphrase()
		if err != nil {
			return err
		}

		if err := app.SetupEncryption(cfg, passphrase); err != nil {
			return fmt.Errorf("setting up encryption: %w", err)
		}

		fmt.Printf("Public key:  %s\n", cfg.Encryption.PublicKeyPath)
		fmt.Printf("Private key: %s\n", cfg.Encryption.PrivateKeyPath)
		return nil
	},
}

// migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		if err := app.Migrate(cfg); err != nil {
			return err
		}
		fmt.Println("Database is up to date.")
		return nil
	},
}

// import command
var importCmd = &cobra.Command{
	Use:   "import FILE.json",
	Short: "Import a character from its JSON form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Import")
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Println(a.ImportFile(cmd.Context(), args[0]))
		if a.Failed() {
			return fmt.Errorf("import failed")
		}
		return nil
	},
}

// inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Validate a save file or character JSON and show its header",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := newApp(cmd, "Inspect")
		if err != nil {
			return err
		}
		defer a.Close()

		if strings.EqualFold(filepath.Ext(args[0]), ".json") {
			return inspectJSON(a, args[0], asJSON)
		}
		if asJSON {
			return fmt.Errorf("--json only applies to character JSON files")
		}

		info, err := a.Inspect(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Path:     %s\n", info.Path)
		fmt.Printf("Kind:     %s\n", info.Kind)
		fmt.Printf("Size:     %d\n", info.Size)
		fmt.Printf("Checksum: %s\n", info.Checksum)
		if h := info.Header; h != nil {
			printHeader(h)
		}
		return nil
	},
}

func inspectJSON(a *app.App, path string, normalized bool) error {
	payload, err := a.ReadFile(path)
	if err != nil {
		return err
	}
	data, err := character.Decode(payload)
	if err != nil {
		return err
	}

	if normalized {
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding character: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	h := data.Header
	fmt.Printf("Character: %s\n", h)
	fmt.Printf("Flags:     %s\n", flagList(h.Status))
	fmt.Printf("Created:   %s\n", formatEpoch(h.Created))
	fmt.Printf("Played:    %s\n", formatEpoch(h.LastPlayed))
	fmt.Printf("Items:     %d\n", data.ItemCount())
	return nil
}

func printHeader(h *d2s.Header) {
	fmt.Printf("Version:  %d\n", h.Version)
	fmt.Printf("Name:     %s\n", h.Name)
	fmt.Printf("Class:    %s\n", h.Class)
	fmt.Printf("Level:    %d\n", h.Level)
	fmt.Printf("Flags:    %s\n", flagList(h.Flags()))
	fmt.Printf("Created:  %s\n", formatEpoch(h.CreatedAt))
	fmt.Printf("Played:   %s\n", formatEpoch(h.LastPlayedAt))
}

func flagList(f d2s.StatusFlags) string {
	var names []string
	if f.Expansion {
		names = append(names, "expansion")
	}
	if f.Hardcore {
		names = append(names, "hardcore")
	}
	if f.Died {
		names = append(names, "died")
	}
	if f.Ladder {
		names = append(names, "ladder")
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}

func formatEpoch(sec uint32) string {
	if sec == 0 {
		return "-"
	}
	return time.Unix(int64(sec), 0).UTC().Format("2006-01-02 15:04:05")
}

// characters command
var charactersCmd = &cobra.Command{
	Use:   "characters",
	Short: "List imported characters",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ListCharacters")
		if err != nil {
			return err
		}
		defer a.Close()

		chars, err := a.Characters(cmd.Context())
		if err != nil {
			return err
		}

		if len(chars) == 0 {
			fmt.Println("No characters imported.")
			return nil
		}

		for _, c := range chars {
			fmt.Printf("%-16s  %3d  %-11s  %s\n", c.Name, c.Level, c.Class, c.SavedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

// show command
var showCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Show an imported character",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "GetCharacter")
		if err != nil {
			return err
		}
		defer a.Close()

		c, err := a.Character(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Name:      %s\n", c.Name)
		fmt.Printf("Class:     %s\n", c.Class)
		fmt.Printf("Level:     %d\n", c.Level)
		fmt.Printf("Expansion: %t\n", c.IsExpansion)
		fmt.Printf("Hardcore:  %t\n", c.IsHardcore)
		fmt.Printf("Ladder:    %t\n", c.IsLadder)
		fmt.Printf("Died:      %t\n", c.HasDied)
		fmt.Printf("Saved:     %s\n", c.SavedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Imported:  %s\n", c.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		return nil
	},
}

// archive command
var archiveCmd = &cobra.Command{
	Use:   "archive [PATH]",
	Short: "Archive save files to the vault",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recursive, _ := cmd.Flags().GetBool("recursive")
		encrypt, _ := cmd.Flags().GetBool("encrypt")

		a, err := newApp(cmd, "Archive")
		if err != nil {
			return err
		}
		defer a.Close()

		target := "."
		if len(args) > 0 {
			target = args[0]
		}

		summary, err := a.Archive(cmd.Context(), target, recursive, encrypt)
		if err != nil {
			return fmt.Errorf("archive failed: %w", err)
		}

		for _, s := range summary.Skipped {
			fmt.Printf("skipped %s: %v\n", s.Path, s.Err)
		}
		for _, ar := range summary.Archived {
			fmt.Printf("%s  %s\n", ar.Checksum[:12], ar.Path)
		}
		fmt.Printf("Archived %d save(s), %d already archived, %d skipped\n",
			len(summary.Archived), summary.Deduplicated, len(summary.Skipped))
		return nil
	},
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status [PATH]",
	Short: "Show which saves are archived",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recursive, _ := cmd.Flags().GetBool("recursive")

		a, err := newApp(cmd, "GetStatus")
		if err != nil {
			return err
		}
		defer a.Close()

		target := "."
		if len(args) > 0 {
			target = args[0]
		}

		statuses, err := a.Status(cmd.Context(), target, recursive)
		if err != nil {
			return err
		}

		if len(statuses) == 0 {
			fmt.Println("No saves found.")
			return nil
		}

		for _, s := range statuses {
			var indicator string
			switch {
			case s.Err != nil:
				indicator = "!"
			case s.IsArchived:
				indicator = "A"
			case s.IsModifiedSince:
				indicator = "M"
			default:
				indicator = "?"
			}
			if s.Err != nil {
				fmt.Printf("%s %s  (%v)\n", indicator, s.RelativePath, s.Err)
				continue
			}
			fmt.Printf("%s %s\n", indicator, s.RelativePath)
		}
		return nil
	},
}

// archives command
var archivesCmd = &cobra.Command{
	Use:   "archives",
	Short: "List archived saves",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "ListArchives")
		if err != nil {
			return err
		}
		defer a.Close()

		archives, err := a.Archives(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if len(archives) == 0 {
			fmt.Println("No saves archived.")
			return nil
		}

		for _, ar := range archives {
			enc := ""
			if ar.EncryptedChecksum.Valid {
				enc = "  [encrypted]"
			}
			name := "-"
			if ar.CharacterName.Valid {
				name = ar.CharacterName.String
			}
			fmt.Printf("%s  %s  %-10s  %-16s  %s%s\n",
				ar.Checksum,
				ar.ArchivedAt.Local().Format("2006-01-02 15:04:05"),
				ar.Kind,
				name,
				ar.Path,
				enc,
			)
		}
		return nil
	},
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore CHECKSUM DEST",
	Short: "Restore an archived save",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Restore")
		if err != nil {
			return err
		}
		defer a.Close()

		encrypted, err := a.ArchiveEncrypted(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		var passphrase string
		if encrypted {
			passphrase, err = readPassphrase("Passphrase: ")
			if err != nil {
				return err
			}
		}

		out, err := a.Restore(cmd.Context(), args[0], args[1], passphrase)
		if err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}

		fmt.Printf("Restored %s\n", out)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "GetHistory")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt.Valid {
				d := op.FinishedAt.Time.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-10s  %s  %-7s  %-10s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configKeysCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().Bool("json", false, "Print normalized character JSON")
	rootCmd.AddCommand(charactersCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.Flags().BoolP("recursive", "r", false, "Recurse into subdirectories")
	archiveCmd.Flags().Bool("encrypt", false, "Encrypt saves before storing them")
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolP("recursive", "r", false, "Recurse into subdirectories")
	rootCmd.AddCommand(archivesCmd)
	archivesCmd.Flags().IntP("limit", "n", 20, "Maximum number of archives to show")
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	rootCmd.AddCommand(restoreCmd)
}
