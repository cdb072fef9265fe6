package cli

import (
	"github.com/spf13/cobra"

	"github.com/calebraw/sigil/internal/lineage"
)

// HashOptions holds flags for the hash record-id subcommand.
type HashOptions struct {
	*RootOptions
	RunMarker string
	OutputKey string
	Parents   []string
}

// NewHashCommand creates the hash command group: parents-root and record-id.
func NewHashCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Derive parents roots and record identifiers",
	}
	cmd.AddCommand(newParentsRootCommand(rootOpts))
	cmd.AddCommand(newRecordIDCommand(rootOpts))
	return cmd
}

func newParentsRootCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "parents-root [ID...]",
		Short: "Print the order-independent digest of a parent set",
		Long: `Print the parents-root digest for zero or more parent record identifiers.

The digest is independent of argument order. With no arguments it prints the
stable "no ancestry" root.

Examples:
  sigil hash parents-root
  sigil hash parents-root sha256:aaa... sha256:bbb...`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := selectEngine()
			if err != nil {
				return err
			}
			root := lineage.ParentsRoot(eng, args)
			return newFormatter(rootOpts, cmd).Success(root, map[string]any{
				"parents_root": root,
				"parents":      len(args),
			})
		},
	}
}

func newRecordIDCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HashOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "record-id",
		Short: "Derive the content-addressed identifier of a record",
		Long: `Derive a record identifier from its parent set, run marker, and output key.

Identical logical inputs always produce the identical identifier, regardless
of parent declaration order.

Examples:
  sigil hash record-id --run-marker RA-001 --output-key done:receipt:analysis:issue:42
  sigil hash record-id --run-marker RA-001 --output-key k --parent sha256:aaa...`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := selectEngine()
			if err != nil {
				return err
			}
			id, err := lineage.RecordID(eng, opts.Parents, opts.RunMarker, opts.OutputKey)
			if err != nil {
				return err
			}
			return newFormatter(rootOpts, cmd).Success(id, map[string]any{"record_id": id})
		},
	}

	cmd.Flags().StringVar(&opts.RunMarker, "run-marker", "", "originating work item id (required)")
	cmd.Flags().StringVar(&opts.OutputKey, "output-key", "", "semantic output key (required)")
	cmd.Flags().StringArrayVar(&opts.Parents, "parent", nil, "parent record id (repeatable)")

	return cmd
}
