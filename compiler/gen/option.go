package gen

import (
	"errors"
	"go/token"
	"path/filepath"
	"runtime"
)

// DefaultHeader is the comment written at the top of generated Go files.
const DefaultHeader = "Code generated by cassava. DO NOT EDIT."

// Config configures code generation.
type Config struct {
	// Package is the name of the generated Go package. It defaults to the
	// package declared by the schema files, then to the base name of Target.
	Package string
	// Target is the output directory.
	Target string
	// Header is written at the top of each generated Go file.
	Header string
	// Keyspace qualifies the names in the generated schema.cql.
	Keyspace string
	// IfNotExists makes the schema.cql statements idempotent.
	IfNotExists bool
	// Workers bounds the number of files rendered in parallel.
	Workers int
}

// Option configures code generation.
type Option func(*Config) error

// WithPackage sets the generated package name.
func WithPackage(pkg string) Option {
	return func(c *Config) error {
		if !token.IsIdentifier(pkg) {
			return NewConfigError("Package", pkg, "package must be a Go identifier")
		}
		c.Package = pkg
		return nil
	}
}

// WithTarget sets the output directory.
func WithTarget(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return NewConfigError("Target", nil, "target directory cannot be empty")
		}
		c.Target = dir
		return nil
	}
}

// WithHeader sets the file header comment.
func WithHeader(header string) Option {
	return func(c *Config) error {
		c.Header = header
		return nil
	}
}

// WithKeyspace qualifies the generated DDL with a keyspace.
func WithKeyspace(ks string) Option {
	return func(c *Config) error {
		c.Keyspace = ks
		return nil
	}
}

// WithIfNotExists renders CREATE ... IF NOT EXISTS statements.
func WithIfNotExists(on bool) Option {
	return func(c *Config) error {
		c.IfNotExists = on
		return nil
	}
}

// WithWorkers sets the number of parallel workers.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return NewConfigError("Workers", n, "workers must be positive")
		}
		c.Workers = n
		return nil
	}
}

// Apply applies options to the config.
// It returns the first error encountered.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// ApplyAll applies options and collects all errors.
func (c *Config) ApplyAll(opts ...Option) error {
	var errs []error
	for _, opt := range opts {
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewConfig creates a new Config with the given options.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{
		Header:  DefaultHeader,
		Workers: runtime.GOMAXPROCS(0),
	}
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

// MustNewConfig creates a new Config with the given options.
// It panics if any option fails.
func MustNewConfig(opts ...Option) *Config {
	c, err := NewConfig(opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// packageName resolves the generated package name.
func (c *Config) packageName(declared string) (string, error) {
	switch {
	case c.Package != "":
		return c.Package, nil
	case declared != "":
		if !token.IsIdentifier(declared) {
			return "", NewConfigError("Package", declared, "package must be a Go identifier")
		}
		return declared, nil
	case c.Target != "":
		base := filepath.Base(c.Target)
		if token.IsIdentifier(base) {
			return base, nil
		}
	}
	return "", NewConfigError("Package", nil, "cannot infer the package name, set it explicitly")
}
