package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/erp/replicator/internal/domain/replication"
	"github.com/erp/replicator/internal/infrastructure/notify"
	"github.com/spf13/cobra"
)

// NewReplicateCommand creates the replicate command
func NewReplicateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replicate <descriptor> <source-key>",
		Short: "Run one replication for a source document",
		Long: `Replicate a single source document, as if the host had just reported it added.
Useful to retry a document whose replication failed.

Example:
  replicator replicate sqlite://./documents.db 1`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplicate(cmd.Context(), rootOpts, args[0], args[1], cmd.OutOrStdout())
		},
	}
}

func runReplicate(ctx context.Context, opts *RootOptions, descriptor, key string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := newStack(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = rt.close(context.WithoutCancel(ctx)) }()

	session, err := rt.connect(ctx, descriptor)
	if err != nil {
		return err
	}
	defer rt.closeSession(session)

	p, err := rt.newPipeline(session, notify.NewLogNotifier(rt.log))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build replication pipeline", err)
	}

	attempt, err := p.service.Replicate(ctx, key)
	switch {
	case replication.IsNotFound(err):
		return WrapExitError(ExitFailure, "source document not found", err)
	case replication.IsPersistence(err):
		return WrapExitError(ExitFailure, "host rejected the document", err)
	case err != nil:
		return WrapExitError(ExitFailure, "replication failed", err)
	}
	_, _ = fmt.Fprintf(out, "%s %s created from %s (%d line(s))\n",
		rt.cfg.Replication.DerivedLabel, attempt.DerivedKey, attempt.SourceKey, attempt.LineCount)
	return nil
}
