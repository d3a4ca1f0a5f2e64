package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/doctotypetech/kitt/internal/chat"
	"github.com/doctotypetech/kitt/internal/config"
	"github.com/doctotypetech/kitt/internal/doctor"
	"github.com/doctotypetech/kitt/internal/hostexec"
	"github.com/doctotypetech/kitt/internal/paths"
	"github.com/doctotypetech/kitt/internal/setup"
	"github.com/doctotypetech/kitt/internal/store"
	"github.com/doctotypetech/kitt/internal/telemetry"
	"github.com/doctotypetech/kitt/internal/tui"
	"github.com/doctotypetech/kitt/internal/updater"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var cfgFile string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
		// Surface the failing command's exit code when there is one.
		var cmdErr *hostexec.CommandError
		if errors.As(err, &cmdErr) && cmdErr.ExitCode > 0 {
			os.Exit(cmdErr.ExitCode)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "kitt",
	Short: "KITT - your local AI assistant",
	Long:  "KITT installs a local AI profile on top of an Ollama model and gives you a terminal chat interface to talk to it.",
	// Default to the chat TUI when no subcommand is provided
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			short := commit
			if len(short) > 7 {
				short = short[:7]
			}
			fmt.Printf("kitt %s (%s, %s)\n", version, short, date)
			return nil
		}
		return runChat()
	},
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the KITT AI profile",
	Long:  "Download the profile artifacts, install Ollama, pull the base model, create the AI profile, and package the desktop app. Steps already done are skipped, so a failed run can be re-run.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInstall()
	},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the KITT installation",
	Long:  "Validate that Ollama, the base model, the AI profile and the downloaded artifacts are all in place.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		workDir, err := workDir(cfg)
		if err != nil {
			return err
		}

		useColor := os.Getenv("NO_COLOR") == ""
		fmt.Println()
		fmt.Println("  Checking KITT installation...")
		fmt.Println()

		results := doctor.RunAll(context.Background(), hostexec.NewLocal(), cfg.Install, workDir, runtime.GOOS)
		allPassed := doctor.PrintResults(results, os.Stdout, useColor)
		fmt.Println()

		if !allPassed {
			os.Exit(1)
		}
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:     "update",
	Aliases: []string{"upgrade"},
	Short:   "Update kitt to the latest version",
	RunE: func(cmd *cobra.Command, args []string) error {
		latest, url, needsUpdate, err := updater.CheckLatest(version)
		if err != nil {
			return fmt.Errorf("check for updates: %w", err)
		}
		if !needsUpdate {
			fmt.Printf("Already up to date (%s)\n", version)
			return nil
		}
		updater.MarkChecked()
		fmt.Printf("Updating %s -> %s...\n", version, latest)
		if err := updater.Update(url); err != nil {
			return fmt.Errorf("update failed: %w", err)
		}
		fmt.Printf("Updated to %s\n", latest)
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the saved chat transcript",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := paths.TranscriptDB()
		if err != nil {
			return fmt.Errorf("determine transcript path: %w", err)
		}
		st, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open transcript: %w", err)
		}
		defer func() { _ = st.Close() }()
		if err := st.Clear(context.Background()); err != nil {
			return err
		}
		fmt.Println("Transcript cleared.")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/kitt/config.yaml)")
	rootCmd.Flags().BoolP("version", "v", false, "print version")
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(clearCmd)
}

// loadConfig loads the config file, writing defaults on first run.
func loadConfig() (*config.Config, string, error) {
	configPath := cfgFile
	if configPath == "" {
		var err error
		configPath, err = paths.ConfigFile()
		if err != nil {
			return nil, "", fmt.Errorf("determine config path: %w", err)
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}

	if _, statErr := os.Stat(configPath); os.IsNotExist(statErr) {
		if err := cfg.Save(configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not write default config: %v\n", err)
		}
	}

	return cfg, configPath, nil
}

func workDir(cfg *config.Config) (string, error) {
	if cfg.Install.WorkDir != "" {
		return cfg.Install.WorkDir, nil
	}
	dir, err := paths.WorkDir()
	if err != nil {
		return "", fmt.Errorf("determine work dir: %w", err)
	}
	return dir, nil
}

// fileLogger logs to a file next to the config so the TUI stays clean.
func fileLogger(configPath, name string) (*slog.Logger, func()) {
	logPath := filepath.Join(filepath.Dir(configPath), name)
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}
	}
	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, func() { _ = logFile.Close() }
}

// runInstall plans and executes the install under the progress TUI.
func runInstall() error {
	cfg, configPath, err := loadConfig()
	if err != nil {
		return err
	}
	wd, err := workDir(cfg)
	if err != nil {
		return err
	}

	logger, closeLog := fileLogger(configPath, "kitt-install.log")
	defer closeLog()

	runner := hostexec.NewLocal()

	host, err := setup.DetectHost(context.Background(), runner, runtime.GOOS)
	if err != nil {
		return err
	}
	logger.Info("install starting", "host", host.Name, "goos", host.GOOS)

	registry, err := setup.DefaultRegistry(cfg.Install, wd, host.GOOS)
	if err != nil {
		return err
	}
	plan, err := registry.Plan(host.GOOS)
	if err != nil {
		return err
	}

	tele, err := telemetry.NewService(cfg.Telemetry)
	if err != nil {
		tele = telemetry.NewNoopService()
	}
	defer tele.Close()
	tele.Track("install_started", map[string]any{"goos": host.GOOS, "steps": len(plan)})

	model := tui.NewInstallModel(runner, plan, logger)
	final, err := tui.RunInstall(model)
	if err != nil {
		return fmt.Errorf("install ui: %w", err)
	}
	if resultErr := final.Result(); resultErr != nil {
		tele.Track("install_failed", map[string]any{"error": resultErr.Error()})
		return resultErr
	}
	tele.Track("install_succeeded", nil)
	return nil
}

// runChat launches the interactive chat TUI.
func runChat() error {
	cfg, configPath, err := loadConfig()
	if err != nil {
		return err
	}

	logger, closeLog := fileLogger(configPath, "kitt.log")
	defer closeLog()

	runner := hostexec.NewLocal()

	var transcript *store.Store
	if cfg.Chat.PersistTranscript {
		dbPath, err := paths.TranscriptDB()
		if err == nil {
			if st, openErr := store.Open(dbPath); openErr == nil {
				transcript = st
				defer func() { _ = st.Close() }()
			} else {
				logger.Warn("transcript store unavailable", "error", openErr)
			}
		}
	}

	tele, err := telemetry.NewService(cfg.Telemetry)
	if err != nil {
		tele = telemetry.NewNoopService()
	}
	defer tele.Close()

	session := chat.NewSession(runner, cfg.Install.Profile, cfg.Chat.QueryTimeout, logger)

	// Check for a newer release in the background, at most once a day.
	// The notice is printed after the TUI exits so it is not lost to
	// the alternate screen.
	updateNotice := make(chan string, 1)
	go func() {
		if !updater.ShouldCheck() {
			return
		}
		updater.MarkChecked()
		latest, _, needsUpdate, err := updater.CheckLatest(version)
		if err != nil {
			logger.Debug("update check failed", "error", err)
			return
		}
		if needsUpdate {
			updateNotice <- latest
		}
	}()

	model := tui.NewChatModel(session, runner, cfg.Install.Profile, transcript, tele)
	err = tui.RunChat(model)

	select {
	case latest := <-updateNotice:
		fmt.Printf("A new version of kitt is available: %s -> %s. Run `kitt update` to upgrade.\n", version, latest)
	default:
	}
	return err
}
