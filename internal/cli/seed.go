package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/erp/replicator/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
)

// SeedOptions holds flags for the seed command
type SeedOptions struct {
	*RootOptions
	File string
}

// NewSeedCommand creates the seed command
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed <store-descriptor>",
		Short: "Load source documents into a local document store",
		Long: `Load documents from a YAML file into a local store (sqlite:// or postgres://).
Prints the key of every stored document.

Example:
  replicator seed sqlite://./documents.db --file orders.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), opts, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "YAML file with the documents to load (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runSeed(ctx context.Context, opts *SeedOptions, descriptor string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !persistence.IsStoreDescriptor(descriptor) {
		return WrapExitError(ExitCommandError, "seed needs a local store descriptor",
			errors.New("use sqlite:// or postgres://"))
	}

	f, err := os.Open(opts.File)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open seed file", err)
	}
	defer f.Close()
	docs, err := persistence.LoadSeed(f)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid seed file", err)
	}

	rt, err := newStack(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer func() { _ = rt.close(context.WithoutCancel(ctx)) }()

	session, err := persistence.NewConnector(rt.storeConfig(), rt.log).Connect(ctx, descriptor)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to connect", err)
	}
	defer rt.closeSession(session)

	keys, err := session.(*persistence.Session).Store().Seed(ctx, docs)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to seed documents", err)
	}
	_, _ = fmt.Fprintf(out, "Seeded %d document(s): %s\n", len(keys), strings.Join(keys, ", "))
	return nil
}
