package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/syssam/cassava/compiler/gen"
	"github.com/syssam/cassava/compiler/load"
	"github.com/syssam/cassava/mapping"
)

func newSchemaCmd() *cobra.Command {
	var (
		keyspace    string
		ifNotExists bool
	)
	cmd := &cobra.Command{
		Use:   "schema <schema-path>...",
		Short: "Print the CQL schema",
		Long: "Print the CREATE TYPE and CREATE TABLE statements of the schema files.\n" +
			"usage:\n" +
			"\tcassava schema --keyspace shop ./schema",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := load.Load(args...)
			if err != nil {
				return err
			}
			cfg, err := gen.NewConfig(
				gen.WithPackage("schema"),
				gen.WithKeyspace(keyspace),
				gen.WithIfNotExists(ifNotExists),
			)
			if err != nil {
				return err
			}
			g, err := gen.NewGraph(cfg, spec)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), g.DDL())
			return err
		},
	}
	cmd.Flags().StringVarP(&keyspace, "keyspace", "k", "", "Keyspace qualifying the statements")
	cmd.Flags().BoolVar(&ifNotExists, "if-not-exists", false, "Render CREATE ... IF NOT EXISTS")
	return cmd
}

func newDescribeCmd() *cobra.Command {
	var packed bool
	cmd := &cobra.Command{
		Use:   "describe <schema-path>...",
		Short: "Print the validated entity descriptors",
		Long: "Print the entity descriptors of the schema files with all defaults filled in,\n" +
			"as YAML or as msgpack.\n" +
			"usage:\n" +
			"\tcassava describe --msgpack ./schema > model.desc",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := load.Load(args...)
			if err != nil {
				return err
			}
			var b []byte
			if packed {
				b, err = mapping.EncodeDescriptors(spec.Entities)
			} else {
				b, err = spec.Marshal()
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
	cmd.Flags().BoolVar(&packed, "msgpack", false, "Encode the descriptors with msgpack")
	return cmd
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <file>",
		Short: "Print msgpack encoded descriptors as YAML",
		Long: "Decode descriptors written by describe --msgpack or mapping.EncodeDescriptors.\n" +
			"usage:\n" +
			"\tcassava decode model.desc",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			ds, err := mapping.DecodeDescriptors(b)
			if err != nil {
				return err
			}
			out, err := (&load.Spec{Entities: ds}).Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
