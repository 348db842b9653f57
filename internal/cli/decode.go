package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/perales/rite/internal/flipwire"
)

// DecodeOptions holds flags for the decode command.
type DecodeOptions struct {
	*RootOptions
	File string // read the payload from a file instead of the argument
}

// DecodeResult summarizes a decoded flip payload. Image bytes are reported
// by size only; the raw content is opaque to this tool.
type DecodeResult struct {
	PicSizes []int   `json:"pic_sizes"`
	Orders   [][]int `json:"orders"`
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decode [payload]",
		Short: "Decode a hex flip payload",
		Long: `Decode a hex-encoded flip payload and print its structure.

A flip payload is the wire form served for one flip: a two-field list
carrying the flip's images and the candidate orderings of those images.
The payload is accepted as a positional argument or, with --file, read
from a file. A 0x prefix is optional.

Exit codes:
  0 - Payload decoded
  1 - Payload is malformed
  2 - Command error (no payload, unreadable file)

Examples:
  rite decode 0xcac584696d6741c3c28001
  rite decode --file payload.hex
  rite decode 0xcac584696d6741c3c28001 --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.File, "file", "", "read the hex payload from a file")

	return cmd
}

func runDecode(opts *DecodeOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	payload, err := decodePayloadInput(opts, args)
	if err != nil {
		return err
	}

	formatter.VerboseLog("Decoding %d hex character(s)", len(payload))

	rec, err := flipwire.ParseHex(payload)
	if err != nil {
		_ = formatter.Error(ErrCodeMalformed, err.Error(), nil)
		// Malformed payloads are domain failures, not command errors
		return WrapExitError(ExitFailure, "decode payload", err)
	}

	if opts.Format == "json" {
		return formatter.Success(newDecodeResult(rec))
	}
	return outputDecodeText(formatter, rec)
}

// decodePayloadInput resolves the payload source: the positional argument or
// the --file flag, exactly one of which must be given.
func decodePayloadInput(opts *DecodeOptions, args []string) (string, error) {
	if opts.File != "" {
		if len(args) > 0 {
			return "", NewExitError(ExitCommandError, "payload argument and --file are mutually exclusive")
		}
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return "", WrapExitError(ExitCommandError, fmt.Sprintf("read payload file %s", opts.File), err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if len(args) == 0 {
		return "", NewExitError(ExitCommandError, "no payload: pass a hex string or --file")
	}
	return args[0], nil
}

func newDecodeResult(rec flipwire.Record) DecodeResult {
	sizes := make([]int, len(rec.Pics))
	for i, pic := range rec.Pics {
		sizes[i] = len(pic)
	}
	return DecodeResult{PicSizes: sizes, Orders: rec.Orders}
}

// outputDecodeText prints the decoded structure as text.
func outputDecodeText(formatter *OutputFormatter, rec flipwire.Record) error {
	w := formatter.Writer

	fmt.Fprintf(w, "✓ decoded: %d pic(s), %d order(s)\n", len(rec.Pics), len(rec.Orders))
	for i, pic := range rec.Pics {
		fmt.Fprintf(w, "  pic %d: %d bytes\n", i, len(pic))
	}
	for i, order := range rec.Orders {
		fmt.Fprintf(w, "  order %d: %v\n", i, order)
	}
	return nil
}
