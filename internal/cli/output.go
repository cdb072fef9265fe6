package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/calebraw/sigil/internal/fault"
)

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // informational notes go to stderr to keep stdout pipeable
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string `json:"status"` // "ok" or "error"
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// newFormatter binds a formatter to a command's configured streams.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
	}
}

// Success outputs a structured result (JSON) or a plain line (text).
// In text mode, line is printed as-is; data feeds only the JSON form.
func (f *OutputFormatter) Success(line string, data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, line)
	return err
}

// Notef prints an informational note on the error channel.
func (f *OutputFormatter) Notef(format string, args ...any) {
	fmt.Fprintf(f.ErrWriter, format+"\n", args...)
}

// Failure reports a validation failure: the report is still printed on
// stdout, and the returned error carries the exit code.
func (f *OutputFormatter) Failure(line string, data any, err error) error {
	if f.Format == "json" {
		encErr := json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Data:   data,
			Error:  err.Error(),
		})
		if encErr != nil {
			return encErr
		}
		return err
	}
	if line != "" {
		fmt.Fprintln(f.Writer, line)
	}
	return err
}

// ExitCode maps an error returned from command execution to the process exit
// code. The taxonomy lives in the fault package; anything uncategorized
// (cobra usage errors included) exits 2.
func ExitCode(err error) int {
	return fault.ExitCode(err)
}
