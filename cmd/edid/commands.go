package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/s0up4200/go-edid/internal/backup"
	"github.com/s0up4200/go-edid/internal/device"
	"github.com/s0up4200/go-edid/internal/edid"
	"github.com/s0up4200/go-edid/internal/i2c"
	"github.com/s0up4200/go-edid/internal/report"
	"github.com/s0up4200/go-edid/internal/settings"
)

// maxDiffRows caps the diff table printed by validate.
const maxDiffRows = 32

// parseBus accepts "5", "i2c-5" or "/dev/i2c-5".
func parseBus(arg string) (int, error) {
	if n, ok := i2c.ParseBus(filepath.Base(arg)); ok {
		return n, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid bus %q (want a number such as 5 or /dev/i2c-5)", arg)
	}
	return n, nil
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List I2C buses and probe each for an EDID device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd, opts, nil)
			if err != nil {
				return err
			}
			buses, err := e.channel.DiscoverBuses(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(buses) == 0 {
				fmt.Fprintln(out, "No I2C buses found.")
				fmt.Fprintln(out, "\nMake sure:")
				fmt.Fprintln(out, "  - the i2c-dev kernel module is loaded")
				fmt.Fprintln(out, "  - you can access /dev/i2c-* (join the i2c group or run as root)")
				return nil
			}

			rows := make([][]string, 0, len(buses))
			found := false
			for _, b := range buses {
				status := "no"
				switch {
				case b.ProbeErr != nil:
					status = "error: " + b.ProbeErr.Error()
				case b.HasEDID:
					status = "yes"
					found = true
				}
				rows = append(rows, []string{strconv.Itoa(b.Bus), b.Device, b.Adapter, status})
			}
			fmt.Fprintln(out, renderTable(busColumns, rows))
			if found {
				fmt.Fprintln(out, "\nUse 'edid read <bus> <output-file>' to read EDID data.")
			} else {
				fmt.Fprintln(out, "\nNo EDID devices detected on any bus.")
			}
			return nil
		},
	}
}

func newReadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "read <bus> <output>",
		Short: "Read the full EDID from a bus into a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bus, err := parseBus(args[0])
			if err != nil {
				return err
			}
			e, err := newEnv(cmd, opts, nil)
			if err != nil {
				return err
			}
			doc, err := e.channel.ReadDocument(cmd.Context(), bus)
			if err != nil {
				return err
			}
			if err := edid.WriteFile(args[1], doc); err != nil {
				return err
			}
			if ok, reason := edid.ValidateStructure(doc); !ok {
				printStatus(cmd.ErrOrStderr(), statusWarn, "device EDID is invalid: %s", reason)
			}
			printStatus(cmd.OutOrStdout(), statusOK, "Read %d bytes (%d extension blocks) from bus %d", len(doc), doc.ExtensionCount(), bus)
			fmt.Fprintf(cmd.OutOrStdout(), "Saved to: %s\n", args[1])
			return nil
		},
	}
}

func newDecodeCmd() *cobra.Command {
	var level, output string
	cmd := &cobra.Command{
		Use:   "decode <file>",
		Short: "Decode an EDID file",
		Long:  "Decode an EDID file. Levels: hex (raw dump), basic (summary), deep (every descriptor and extension).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := report.ParseLevel(level)
			if err != nil {
				return err
			}
			doc, err := edid.ReadFile(args[0])
			if err != nil {
				return err
			}
			var warning string
			if ok, reason := edid.ValidateStructure(doc); !ok {
				warning = reason + " (decoding anyway)"
			}
			if output == "" || output == "-" {
				if warning != "" {
					printStatus(cmd.ErrOrStderr(), statusWarn, "%s", warning)
				}
				return report.Render(cmd.OutOrStdout(), doc, lvl)
			}
			path, err := report.WriteReport(output, doc, lvl, warning)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report written: %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&level, "level", "l", string(report.LevelBasic), "Decode level: hex, basic or deep")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the report to a file instead of stdout")
	return cmd
}

func newWriteCmd(opts *rootOptions) *cobra.Command {
	var fixChecksums bool
	cmd := &cobra.Command{
		Use:   "write <bus> <file>",
		Short: "Write an EDID file to a bus",
		Long: `Write an EDID file to a bus. The current device content is backed up first
and the result is read back and verified.

WARNING: writing invalid EDID data can make a display unusable.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bus, err := parseBus(args[0])
			if err != nil {
				return err
			}
			doc, err := edid.ReadFile(args[1])
			if err != nil {
				return err
			}
			if fixChecksums {
				if err := edid.RecalculateChecksums(doc); err != nil {
					return err
				}
			}
			if err := edid.CheckStructure(doc); err != nil {
				return fmt.Errorf("invalid EDID file %s: %w", args[1], err)
			}
			if err := edid.RecalculateChecksums(doc); err != nil {
				return err
			}

			errOut := cmd.ErrOrStderr()
			progress := func(p device.WriteProgress) {
				switch p.State {
				case device.StateBackedUp:
					printStatus(errOut, statusInfo, "Backup saved to %s", p.BackupPath)
				case device.StateWrittenAll:
					printStatus(errOut, statusInfo, "Wrote %d pages, verifying", p.Pages)
				}
			}
			e, err := newEnv(cmd, opts, progress)
			if err != nil {
				return err
			}
			res, err := e.channel.WriteDocument(cmd.Context(), bus, doc)
			if err != nil {
				var ve *device.WriteVerificationError
				if errors.As(err, &ve) {
					printDiffs(cmd, ve.Diffs)
				}
				return err
			}
			printStatus(cmd.OutOrStdout(), statusOK, "Successfully wrote %d bytes to bus %d", res.Bytes, bus)
			fmt.Fprintf(cmd.OutOrStdout(), "Backup: %s\n", res.BackupPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fixChecksums, "fix-checksums", false, "Recalculate block checksums before validating the file")
	return cmd
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <bus> <file>",
		Short: "Compare the EDID on a bus with a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bus, err := parseBus(args[0])
			if err != nil {
				return err
			}
			doc, err := edid.ReadFile(args[1])
			if err != nil {
				return err
			}
			if ok, reason := edid.ValidateStructure(doc); !ok {
				printStatus(cmd.ErrOrStderr(), statusWarn, "file EDID is invalid: %s", reason)
			}
			e, err := newEnv(cmd, opts, nil)
			if err != nil {
				return err
			}
			cmp, err := e.channel.Compare(cmd.Context(), bus, doc)
			if err != nil {
				return err
			}
			if cmp.Match {
				printStatus(cmd.OutOrStdout(), statusOK, "%s", cmp.Message)
				return nil
			}
			printDiffs(cmd, cmp.Diffs)
			return fmt.Errorf("device EDID does not match %s: %s", args[1], cmp.Message)
		},
	}
}

func printDiffs(cmd *cobra.Command, diffs []device.ByteDiff) {
	if len(diffs) == 0 {
		return
	}
	rows := make([][]string, 0, min(len(diffs), maxDiffRows))
	for _, d := range diffs[:min(len(diffs), maxDiffRows)] {
		rows = append(rows, []string{
			fmt.Sprintf("%d (0x%02X)", d.Offset, d.Offset),
			fmt.Sprintf("0x%02X", d.Device),
			fmt.Sprintf("0x%02X", d.File),
		})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable(diffColumns, rows))
	if extra := len(diffs) - maxDiffRows; extra > 0 {
		fmt.Fprintf(out, "... and %d more\n", extra)
	}
}

func newTestWriteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "test-write <bus>",
		Short: "Check whether the EDID EEPROM on a bus accepts writes",
		Long: `Flip one unused byte, read it back and restore it. A backup is taken first.

WARNING: the test briefly modifies device memory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bus, err := parseBus(args[0])
			if err != nil {
				return err
			}
			e, err := newEnv(cmd, opts, nil)
			if err != nil {
				return err
			}
			res, err := e.channel.TestWritable(cmd.Context(), bus)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.BackupPath != "" {
				fmt.Fprintf(out, "Backup: %s\n", res.BackupPath)
			}
			switch res.Outcome {
			case device.OutcomeWritable:
				printStatus(out, statusOK, "%s", res.Message)
				fmt.Fprintln(out, "You can use 'edid write' to update the EDID.")
				return nil
			case device.OutcomeReadOnly:
				printStatus(out, statusError, "%s", res.Message)
				return errors.New("device does not appear to be writable")
			default:
				printStatus(out, statusWarn, "%s", res.Message)
				return errors.New("write test not performed")
			}
		},
	}
}

func newBackupsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backups [bus]",
		Short: "List saved EDID backups",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bus := -1
			if len(args) == 1 {
				n, err := parseBus(args[0])
				if err != nil {
					return err
				}
				bus = n
			}
			cfg, err := loadSettings(opts)
			if err != nil {
				return err
			}
			entries, err := backup.New(cfg.BackupDir).List(bus)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "No backups in %s\n", cfg.BackupDir)
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					filepath.Base(e.Path),
					strconv.Itoa(e.Bus),
					e.Time.Format("2006-01-02 15:04:05") + " (" + humanize.Time(e.Time) + ")",
					humanize.Bytes(uint64(e.Size)),
				})
			}
			fmt.Fprintln(out, renderTable(backupColumns, rows))
			fmt.Fprintf(out, "Directory: %s\n", cfg.BackupDir)
			return nil
		},
	}
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := settings.WriteSample(opts.configPath, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config written: %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}
