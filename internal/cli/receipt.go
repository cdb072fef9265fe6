package cli

import (
	"github.com/spf13/cobra"

	"github.com/calebraw/sigil/internal/emit"
)

// ReceiptOptions holds flags for the receipt command.
type ReceiptOptions struct {
	*RootOptions
	LogPath     string
	Backend     string
	LaneTable   string
	IssueNumber int
	WorkID      string
	Category    string
	OK          bool
}

// NewReceiptCommand creates the receipt command.
func NewReceiptCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReceiptOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "receipt",
		Short: "Emit a completion receipt for a dispatched work item",
		Long: `Emit a completion receipt for (issue, work item).

A receipt requires a matching dispatch record already in the log; that
record's identifier becomes the receipt's sole parent. Without one the
emission fails; a receipt cannot be fabricated out of causal order.
Re-running the same receipt is a no-op.

Examples:
  sigil receipt --log signals.log --issue-number 42 --work-id RA-001 \
    --category analysis --ok`,
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

			res, err := emit.Receipt(cmd.Context(), emit.Options{
				Log:           lg,
				Engine:        eng,
				LaneTablePath: opts.LaneTable,
				Diag:          rootOpts.DiagLogger(),
			}, emit.ReceiptParams{
				IssueNumber: opts.IssueNumber,
				WorkID:      opts.WorkID,
				Category:    opts.Category,
				OK:          opts.OK,
			})
			if err != nil {
				return err
			}

			formatter := newFormatter(rootOpts, cmd)
			if !res.Appended {
				formatter.Notef("record %s already present, nothing to do", res.Record.ID)
			}
			return formatter.Success(res.Record.ID, res)
		},
	}

	cmd.Flags().IntVar(&opts.IssueNumber, "issue-number", 0, "issue number (required)")
	cmd.Flags().StringVar(&opts.WorkID, "work-id", "", "completed work item id (required)")
	cmd.Flags().StringVar(&opts.Category, "category", "", "completing category (required)")
	cmd.Flags().BoolVar(&opts.OK, "ok", false, "whether the work completed successfully")
	cmd.Flags().StringVar(&opts.LogPath, "log", "", "path to the ledger (required)")
	cmd.Flags().StringVar(&opts.Backend, "backend", BackendFile, "ledger backend (file|sqlite)")
	cmd.Flags().StringVar(&opts.LaneTable, "lanes", "", "override path for the category->lane table")

	return cmd
}
