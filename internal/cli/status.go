package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Database string
	Epoch    int // journal/archive epoch to inspect; -1 means the persisted one
}

// StatusResult holds the persisted validation record plus the journal and
// archive views for one epoch.
type StatusResult struct {
	Epoch          uint32        `json:"epoch"`
	ShortSubmitted bool          `json:"short_submitted"`
	ShortAnswers   int           `json:"short_answers"`
	LongSubmitted  bool          `json:"long_submitted"`
	LongAnswers    int           `json:"long_answers"`
	ViewEpoch      uint32        `json:"view_epoch"`
	Attempts       []AttemptInfo `json:"attempts"`
	ArchivedFlips  int           `json:"archived_flips"`
}

// AttemptInfo is one journaled submission attempt, summarized.
type AttemptInfo struct {
	Token   string `json:"token"`
	Kind    string `json:"kind"`
	Answers int    `json:"answers"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Inspect the persisted validation record",
		Long: `Inspect the persisted validation record.

Prints the stored epoch, each session's submission flag and answer count,
the journaled submission attempts and the archived flip count. The journal
and archive views default to the persisted epoch; pass --epoch to inspect
an outgoing one. Without --db the store path comes from RITE_DB_PATH.

Exit codes:
  0 - Record printed
  2 - Command error (database not found, store access failed)

Examples:
  rite status --db ./rite.db
  rite status --db ./rite.db --epoch 41
  rite status --db ./rite.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the validation store (default: $RITE_DB_PATH)")
	cmd.Flags().IntVar(&opts.Epoch, "epoch", -1, "epoch for the journal and archive views (default: the persisted epoch)")

	return cmd
}

func runStatus(opts *StatusOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	path, err := resolveDBPath(opts.Database)
	if err != nil {
		return err
	}
	store, err := openStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()

	state, err := store.GetValidation(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "read validation record", err)
	}

	viewEpoch := state.Epoch
	if opts.Epoch >= 0 {
		viewEpoch = uint32(opts.Epoch)
	}
	formatter.VerboseLog("Reading journal and archive for epoch %d", viewEpoch)

	attempts, err := store.Attempts(ctx, viewEpoch)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "read attempt journal", err)
	}
	archived, err := store.ArchivedFlips(ctx, viewEpoch)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "read flip archive", err)
	}

	result := StatusResult{
		Epoch:          state.Epoch,
		ShortSubmitted: state.ShortSubmitted,
		ShortAnswers:   len(state.ShortAnswers),
		LongSubmitted:  state.LongSubmitted,
		LongAnswers:    len(state.LongAnswers),
		ViewEpoch:      viewEpoch,
		Attempts:       make([]AttemptInfo, 0, len(attempts)),
		ArchivedFlips:  len(archived),
	}
	for _, a := range attempts {
		result.Attempts = append(result.Attempts, AttemptInfo{
			Token:   a.Token,
			Kind:    a.Kind.String(),
			Answers: len(a.Answers),
		})
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return outputStatusText(formatter, result)
}

// outputStatusText prints the record as text.
func outputStatusText(formatter *OutputFormatter, result StatusResult) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Epoch: %d\n", result.Epoch)
	fmt.Fprintf(w, "Short session: %s\n", sessionLine(result.ShortSubmitted, result.ShortAnswers))
	fmt.Fprintf(w, "Long session: %s\n", sessionLine(result.LongSubmitted, result.LongAnswers))
	fmt.Fprintf(w, "Archived flips (epoch %d): %d\n", result.ViewEpoch, result.ArchivedFlips)
	fmt.Fprintf(w, "Attempts (epoch %d): %d\n", result.ViewEpoch, len(result.Attempts))
	for _, a := range result.Attempts {
		fmt.Fprintf(w, "  %s  %s  %d answer(s)\n", a.Token, a.Kind, a.Answers)
	}
	return nil
}

func sessionLine(submitted bool, answers int) string {
	if submitted {
		return fmt.Sprintf("submitted (%d answer(s))", answers)
	}
	return "not submitted"
}
