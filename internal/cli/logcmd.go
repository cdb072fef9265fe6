package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calebraw/sigil/internal/ledger"
)

// LogOptions holds flags shared by the log subcommands.
type LogOptions struct {
	*RootOptions
	LogPath string
	Backend string
	Record  string
}

// NewLogCommand creates the log command group: append and validate.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Append to and validate the signal ledger",
	}
	cmd.AddCommand(newLogAppendCommand(rootOpts))
	cmd.AddCommand(newLogValidateCommand(rootOpts))
	return cmd
}

func newLogAppendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "append",
		Short: "Stamp one record and append it to the ledger",
		Long: `Append one self-contained record to the ledger.

The record text must be a single structured object without embedded line
breaks. Its tamper digest is computed and stamped as part of the append.

Examples:
  sigil log append --log signals.log --record '{"format_version":1,...}'
  sigil log append --log signals.db --backend sqlite --record '...'`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := selectEngine()
			if err != nil {
				return err
			}
			lg, err := openLog(opts.LogPath, opts.Backend, eng)
			if err != nil {
				return err
			}
			defer lg.Close()

			stamped, err := ledger.AppendText(cmd.Context(), lg, []byte(opts.Record))
			if err != nil {
				return err
			}
			return newFormatter(rootOpts, cmd).Success(stamped.ID, map[string]any{
				"record_id":     stamped.ID,
				"tamper_digest": stamped.TamperDigest,
			})
		},
	}

	cmd.Flags().StringVar(&opts.LogPath, "log", "", "path to the ledger (required)")
	cmd.Flags().StringVar(&opts.Record, "record", "", "record text to append (required)")
	cmd.Flags().StringVar(&opts.Backend, "backend", BackendFile, "ledger backend (file|sqlite)")

	return cmd
}

func newLogValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate every record in the ledger",
		Long: `Independently validate the tamper digest and shape of every record, and
resolve every declared parent. All failing positions are reported; overall
pass requires zero failures.

Exit codes: 0 when the whole log validates, 1 on any integrity failure,
2 when the log does not exist.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := selectEngine()
			if err != nil {
				return err
			}
			lg, err := openLog(opts.LogPath, opts.Backend, eng)
			if err != nil {
				return err
			}
			defer lg.Close()

			report, err := ledger.Validate(cmd.Context(), eng, lg)
			if err != nil {
				return err
			}

			formatter := newFormatter(rootOpts, cmd)
			if report.OK() {
				return formatter.Success(
					fmt.Sprintf("ok: %d record(s) validated", report.Records), report)
			}

			line := fmt.Sprintf("%d of %d record(s) failed validation", len(report.Failures), report.Records)
			for _, f := range report.Failures {
				line += fmt.Sprintf("\n  line %d [%s]: %s", f.Position, f.Category, f.Message)
			}
			return formatter.Failure(line, report, report.Err())
		},
	}

	cmd.Flags().StringVar(&opts.LogPath, "log", "", "path to the ledger (required)")
	cmd.Flags().StringVar(&opts.Backend, "backend", BackendFile, "ledger backend (file|sqlite)")

	return cmd
}
