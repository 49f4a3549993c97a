// Command cassava generates mapping code and CQL schema from YAML entity
// descriptors.
//
//	cassava gen --target ./model ./schema
//	cassava schema --keyspace shop ./schema
//	cassava describe --msgpack ./schema > model.desc
//	cassava decode model.desc
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// rootOptions are the flags shared by all commands.
type rootOptions struct {
	verbose bool
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "cassava",
		Short:        "Cassandra mapping code generator",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			opts.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newGenCmd(opts),
		newSchemaCmd(),
		newDescribeCmd(),
		newDecodeCmd(),
	)
	return root
}
