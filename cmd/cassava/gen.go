package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/syssam/cassava/compiler/gen"
	"github.com/syssam/cassava/compiler/load"
)

// debounceDelay coalesces the bursts of events editors emit on save.
const debounceDelay = 300 * time.Millisecond

type genOptions struct {
	pkg      string
	target   string
	header   string
	keyspace string
	workers  int
	watch    bool
}

func newGenCmd(root *rootOptions) *cobra.Command {
	opts := &genOptions{}
	cmd := &cobra.Command{
		Use:   "gen <schema-path>...",
		Short: "Generate mapping code",
		Long: "Generate Go structs, mapping declarations and schema.cql from YAML schema files.\n" +
			"usage:\n" +
			"\tcassava gen --target ./model ./schema",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run := func() error { return generate(cmd.Context(), root.logger, opts, args) }
			if err := run(); err != nil {
				if !opts.watch {
					return err
				}
				root.logger.Error("generate", "err", err)
			}
			if !opts.watch {
				return nil
			}
			return watch(cmd.Context(), root.logger, args, run)
		},
	}
	cmd.Flags().StringVarP(&opts.target, "target", "t", "", "Output directory")
	cmd.Flags().StringVarP(&opts.pkg, "package", "p", "", "Generated package name (default: schema package or target base name)")
	cmd.Flags().StringVar(&opts.header, "header", gen.DefaultHeader, "Header comment of generated files")
	cmd.Flags().StringVarP(&opts.keyspace, "keyspace", "k", "", "Keyspace of the generated schema.cql")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "Parallel workers (default: GOMAXPROCS)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Regenerate when schema files change")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func generate(ctx context.Context, logger *slog.Logger, opts *genOptions, paths []string) error {
	spec, err := load.Load(paths...)
	if err != nil {
		return err
	}
	cfgOpts := []gen.Option{
		gen.WithTarget(opts.target),
		gen.WithHeader(opts.header),
		gen.WithKeyspace(opts.keyspace),
	}
	if opts.pkg != "" {
		cfgOpts = append(cfgOpts, gen.WithPackage(opts.pkg))
	}
	if opts.workers > 0 {
		cfgOpts = append(cfgOpts, gen.WithWorkers(opts.workers))
	}
	cfg, err := gen.NewConfig(cfgOpts...)
	if err != nil {
		return err
	}
	g, err := gen.NewGraph(cfg, spec)
	if err != nil {
		return err
	}
	w := gen.NewWriter(g)
	start := time.Now()
	if err := w.Generate(ctx); err != nil {
		return err
	}
	m := w.Metrics()
	logger.Info("generated",
		slog.String("package", g.Package),
		slog.String("target", opts.target),
		slog.Int("files", m.FilesGenerated),
		slog.Int64("bytes", m.TotalBytes),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}

// watch calls fn whenever a schema file under paths changes, until ctx is
// done.
func watch(ctx context.Context, logger *slog.Logger, paths []string, fn func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer w.Close()
	for _, p := range paths {
		dir := p
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			dir = filepath.Dir(p)
		}
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		logger.Debug("watching", slog.String("path", dir))
	}

	var (
		timer *time.Timer
		fire  = make(chan struct{}, 1)
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isSchemaFile(ev.Name) || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			logger.Debug("schema changed", slog.String("file", ev.Name), slog.String("op", ev.Op.String()))
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceDelay, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch", "err", err)
		case <-fire:
			if err := fn(); err != nil {
				logger.Error("generate", "err", err)
			}
		}
	}
}

func isSchemaFile(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}
