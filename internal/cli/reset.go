package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ResetOptions holds flags for the reset command.
type ResetOptions struct {
	*RootOptions
	Database string
	Epoch    uint32
}

// ResetResult reports a forced epoch reset.
type ResetResult struct {
	PreviousEpoch uint32 `json:"previous_epoch"`
	Epoch         uint32 `json:"epoch"`
}

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Force an epoch reset on the validation store",
		Long: `Roll the persisted validation record into a new epoch.

Both answer sets and both submission flags are dropped, exactly as if the
epoch watcher had observed the rollover. The attempt journal and the flip
archive are left untouched; they remain readable per epoch via status.

Exit codes:
  0 - Record reset
  2 - Command error (database not found, store access failed)

Examples:
  rite reset --db ./rite.db --epoch 43`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the validation store (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().Uint32Var(&opts.Epoch, "epoch", 0, "epoch to reset into (required)")
	_ = cmd.MarkFlagRequired("epoch")

	return cmd
}

func runReset(opts *ResetOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	store, err := openStore(opts.Database)
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
	if err := store.ResetValidation(ctx, opts.Epoch); err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "reset validation record", err)
	}

	formatter.VerboseLog("Reset %s from epoch %d to %d", opts.Database, state.Epoch, opts.Epoch)

	result := ResetResult{PreviousEpoch: state.Epoch, Epoch: opts.Epoch}
	if opts.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ reset to epoch %d (was %d)\n", result.Epoch, result.PreviousEpoch)
	return nil
}
