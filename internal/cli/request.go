package cli

import (
	"github.com/spf13/cobra"

	"github.com/calebraw/sigil/internal/emit"
)

// RequestOptions holds flags for the request command.
type RequestOptions struct {
	*RootOptions
	LogPath         string
	Backend         string
	ConfigDir       string
	LaneTable       string
	SourceCategory  string
	TargetCategory  string
	WorkType        string
	WorkID          string
	RequestedWorkID string
	IssueNumber     int
	Parents         []string
}

// NewRequestCommand creates the request command.
func NewRequestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RequestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "request",
		Short: "Emit a cross-category work request",
		Long: `Emit a cross-category work request, gated by the source lane's allow-list.

The requesting category's lane is resolved from the static lookup table, the
lane's settings file at <config-dir>/<lane>.conf must list the exact
source->target pair under request_allowlist, and only then is the request
appended. Re-running the same request is a no-op.

Examples:
  sigil request --source-category analysis --target-category drafting \
    --work-type summary --work-id RA-001 --issue-number 42 \
    --log signals.log --config-dir ./conf`,
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

			res, err := emit.Request(cmd.Context(), emit.Options{
				Log:           lg,
				Engine:        eng,
				LaneTablePath: opts.LaneTable,
				Diag:          rootOpts.DiagLogger(),
			}, emit.RequestParams{
				SourceCategory:  opts.SourceCategory,
				TargetCategory:  opts.TargetCategory,
				WorkType:        opts.WorkType,
				WorkID:          opts.WorkID,
				RequestedWorkID: opts.RequestedWorkID,
				IssueNumber:     opts.IssueNumber,
				Parents:         opts.Parents,
				ConfigDir:       opts.ConfigDir,
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

	cmd.Flags().StringVar(&opts.SourceCategory, "source-category", "", "requesting category (required)")
	cmd.Flags().StringVar(&opts.TargetCategory, "target-category", "", "category being addressed (required)")
	cmd.Flags().StringVar(&opts.WorkType, "work-type", "", "kind of work requested (required)")
	cmd.Flags().StringVar(&opts.WorkID, "work-id", "", "originating work item id (required)")
	cmd.Flags().StringVar(&opts.RequestedWorkID, "requested-work-id", "", "work item id being requested")
	cmd.Flags().IntVar(&opts.IssueNumber, "issue-number", 0, "issue number (0 when none)")
	cmd.Flags().StringArrayVar(&opts.Parents, "parent", nil, "parent record id (repeatable)")
	cmd.Flags().StringVar(&opts.LogPath, "log", "", "path to the ledger (required)")
	cmd.Flags().StringVar(&opts.Backend, "backend", BackendFile, "ledger backend (file|sqlite)")
	cmd.Flags().StringVar(&opts.ConfigDir, "config-dir", "", "directory of per-lane settings files (required)")
	cmd.Flags().StringVar(&opts.LaneTable, "lanes", "", "override path for the category->lane table")

	return cmd
}
