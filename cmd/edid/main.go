package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/blang/semver"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"

	"github.com/s0up4200/go-edid/internal/backup"
	"github.com/s0up4200/go-edid/internal/device"
	"github.com/s0up4200/go-edid/internal/i2c"
	"github.com/s0up4200/go-edid/internal/logging"
	"github.com/s0up4200/go-edid/internal/settings"
)

var version = "dev"

type rootOptions struct {
	configPath string
	verbose    bool
	logFormat  string
}

// Replaced in tests with a simulated bus.
var (
	newOpener     = func() i2c.Opener { return i2c.Devfs{} }
	newEnumerator = func(glob string) i2c.Enumerator { return i2c.DefaultEnumerator(glob) }
)

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "edid",
		Short: "Read, decode, write and verify display EDID over I2C.",
		Long: `edid manages EDID data on display EEPROMs reachable through /dev/i2c-*.

Common bus numbers are 0-9. Use 'edid list' to discover buses with an EDID device.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Config file (default "+settings.DefaultPath+")")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log every bus transaction")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format: console or json")

	rootCmd.AddCommand(
		newListCmd(opts),
		newReadCmd(opts),
		newDecodeCmd(),
		newWriteCmd(opts),
		newValidateCmd(opts),
		newTestWriteCmd(opts),
		newBackupsCmd(opts),
		newConfigCmd(opts),
		newUpdateCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Update edid",
		Long:  "Update edid to latest version (release builds only).",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelfUpdate(cmd.Context(), cmd.OutOrStdout())
		},
		DisableFlagsInUseLine: true,
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "edid version: %s\n", version)
			return nil
		},
		DisableFlagsInUseLine: true,
	}
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "edid: %s\n", err.Error())
		os.Exit(1)
	}
}

// env is what a hardware command needs once config is loaded.
type env struct {
	cfg     settings.Settings
	logger  *slog.Logger
	channel *device.Channel
}

func loadSettings(opts *rootOptions) (settings.Settings, error) {
	cfg, _, _, err := settings.Load(opts.configPath)
	if err != nil {
		return settings.Settings{}, err
	}
	if opts.verbose {
		cfg.LogLevel = "debug"
	}
	if opts.logFormat != "" {
		cfg.LogFormat = opts.logFormat
	}
	return cfg, nil
}

func newEnv(cmd *cobra.Command, opts *rootOptions, progress device.ProgressFunc) (*env, error) {
	cfg, err := loadSettings(opts)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Writer: cmd.ErrOrStderr()})
	if err != nil {
		return nil, err
	}
	channelOpts := []device.Option{
		device.WithLogger(logger),
		device.WithEnumerator(newEnumerator(cfg.DeviceGlob)),
		device.WithLockDir(cfg.LockDir),
	}
	if progress != nil {
		channelOpts = append(channelOpts, device.WithProgress(progress))
	}
	ch, err := device.New(newOpener(), backup.New(cfg.BackupDir), channelOpts...)
	if err != nil {
		if errors.Is(err, device.ErrUnsupported) {
			return nil, fmt.Errorf("%w (I2C access requires Linux with the i2c-dev module loaded)", err)
		}
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, channel: ch}, nil
}

func runSelfUpdate(ctx context.Context, out io.Writer) error {
	if version == "" || version == "dev" {
		return errors.New("self-update is only available in release builds")
	}

	if _, err := semver.ParseTolerant(version); err != nil {
		return fmt.Errorf("could not parse version: %w", err)
	}

	latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug("s0up4200/go-edid"))
	if err != nil {
		return fmt.Errorf("error occurred while detecting version: %w", err)
	}
	if !found {
		return fmt.Errorf("latest version for %s/%s could not be found from github repository", "s0up4200/go-edid", version)
	}

	if latest.LessOrEqual(version) {
		fmt.Fprintf(out, "Current binary is the latest version: %s\n", version)
		return nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("could not locate executable path: %w", err)
	}

	if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
		return fmt.Errorf("error occurred while updating binary: %w", err)
	}

	fmt.Fprintf(out, "Successfully updated to version: %s\n", latest.Version())
	return nil
}
