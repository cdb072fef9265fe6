package cli

import (
	"bytes"
	"os"

	"github.com/spf13/cobra"

	"github.com/calebraw/sigil/internal/digest"
	"github.com/calebraw/sigil/internal/envelope"
	"github.com/calebraw/sigil/internal/fault"
)

// NewTamperCommand creates the tamper command group.
func NewTamperCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tamper",
		Short: "Compute, stamp, and validate tamper digests",
	}
	cmd.AddCommand(newTamperFileCommand(rootOpts, "compute",
		"Print the tamper digest a record file should carry"))
	cmd.AddCommand(newTamperFileCommand(rootOpts, "update",
		"Stamp the computed tamper digest into a record file"))
	cmd.AddCommand(newTamperFileCommand(rootOpts, "validate",
		"Validate the tamper digest of a record file"))
	cmd.AddCommand(newTamperRecordCommand(rootOpts, "compute-record",
		"Print the tamper digest for record text"))
	cmd.AddCommand(newTamperRecordCommand(rootOpts, "validate-record",
		"Validate the tamper digest of record text"))
	return cmd
}

func newTamperFileCommand(rootOpts *RootOptions, verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:           verb + " <record-file>",
		Short:         short,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := readRecordFile(args[0])
			if err != nil {
				return err
			}
			eng, err := selectEngine()
			if err != nil {
				return err
			}
			switch verb {
			case "compute":
				return runTamperCompute(rootOpts, cmd, eng, line)
			case "update":
				return runTamperUpdate(rootOpts, cmd, eng, args[0], line)
			default:
				return runTamperValidate(rootOpts, cmd, eng, line)
			}
		},
	}
}

func newTamperRecordCommand(rootOpts *RootOptions, verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:           verb + " <record-text>",
		Short:         short,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := selectEngine()
			if err != nil {
				return err
			}
			line := []byte(args[0])
			if verb == "compute-record" {
				return runTamperCompute(rootOpts, cmd, eng, line)
			}
			return runTamperValidate(rootOpts, cmd, eng, line)
		},
	}
}

func readRecordFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fault.Environmentf("record file %s does not exist", path)
	}
	if err != nil {
		return nil, fault.Wrap(fault.KindEnvironment, "reading record file", err)
	}
	return bytes.TrimRight(data, "\n"), nil
}

func runTamperCompute(rootOpts *RootOptions, cmd *cobra.Command, eng *digest.Engine, line []byte) error {
	d, err := envelope.ComputeText(eng, line)
	if err != nil {
		return err
	}
	return newFormatter(rootOpts, cmd).Success(d, map[string]any{"tamper_digest": d})
}

func runTamperUpdate(rootOpts *RootOptions, cmd *cobra.Command, eng *digest.Engine, path string, line []byte) error {
	stamped, err := envelope.UpdateText(eng, line)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(stamped, '\n'), 0o644); err != nil {
		return fault.Wrap(fault.KindEnvironment, "writing stamped record", err)
	}
	return newFormatter(rootOpts, cmd).Success("updated", map[string]any{"record": string(stamped)})
}

func runTamperValidate(rootOpts *RootOptions, cmd *cobra.Command, eng *digest.Engine, line []byte) error {
	if err := envelope.ValidateText(eng, line); err != nil {
		return err
	}
	return newFormatter(rootOpts, cmd).Success("valid", map[string]any{"valid": true})
}
