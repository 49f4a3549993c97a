package cql

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v7"
	"github.com/gocql/gocql"
)

var (
	errConfig  = errors.New("cql: failed to load configuration")
	errConnect = errors.New("cql: failed to connect to cluster")
)

// Config contains the cluster connection parameters.
type Config struct {
	Hosts          []string      `env:"CASSANDRA_HOSTS"           envDefault:"127.0.0.1" envSeparator:","`
	Port           int           `env:"CASSANDRA_PORT"            envDefault:"9042"`
	Keyspace       string        `env:"CASSANDRA_KEYSPACE"        envDefault:""`
	User           string        `env:"CASSANDRA_USER"            envDefault:""`
	Pass           string        `env:"CASSANDRA_PASS"            envDefault:""`
	Consistency    string        `env:"CASSANDRA_CONSISTENCY"     envDefault:"QUORUM"`
	Timeout        time.Duration `env:"CASSANDRA_TIMEOUT"         envDefault:"2s"`
	ConnectTimeout time.Duration `env:"CASSANDRA_CONNECT_TIMEOUT" envDefault:"5s"`
	NumConns       int           `env:"CASSANDRA_NUM_CONNS"       envDefault:"2"`
	SSL            bool          `env:"CASSANDRA_SSL"             envDefault:"false"`
	HostVerify     bool          `env:"CASSANDRA_HOST_VERIFY"     envDefault:"true"`
	CAPath         string        `env:"CASSANDRA_CA_PATH"         envDefault:""`
	CertPath       string        `env:"CASSANDRA_CERT_PATH"       envDefault:""`
	KeyPath        string        `env:"CASSANDRA_KEY_PATH"        envDefault:""`
	Dialect        string        `env:"CASSANDRA_DIALECT"         envDefault:"cassandra"`
}

// LoadConfig reads a Config from the environment. Variable names are
// prefixed with prefix, e.g. "USERS_" reads USERS_CASSANDRA_HOSTS.
func LoadConfig(prefix string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg, env.Options{Prefix: prefix}); err != nil {
		return Config{}, fmt.Errorf("%w: %w", errConfig, err)
	}
	return cfg, nil
}

// ClusterConfig returns the gocql cluster configuration for cfg.
func (cfg Config) ClusterConfig() (*gocql.ClusterConfig, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Port = cfg.Port
	cluster.Keyspace = cfg.Keyspace
	cluster.Timeout = cfg.Timeout
	cluster.ConnectTimeout = cfg.ConnectTimeout
	if cfg.NumConns > 0 {
		cluster.NumConns = cfg.NumConns
	}
	if cfg.Consistency != "" {
		cl, err := gocql.ParseConsistencyWrapper(cfg.Consistency)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errConfig, err)
		}
		cluster.Consistency = cl
	}
	if cfg.User != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.User,
			Password: cfg.Pass,
		}
	}
	if cfg.SSL {
		cluster.SslOpts = &gocql.SslOptions{
			CaPath:                 cfg.CAPath,
			CertPath:               cfg.CertPath,
			KeyPath:                cfg.KeyPath,
			EnableHostVerification: cfg.HostVerify,
		}
	}
	return cluster, nil
}

// Connect establishes a session to the cluster described by cfg.
func Connect(cfg Config, opts ...SessionOption) (*Session, error) {
	cluster, err := cfg.ClusterConfig()
	if err != nil {
		return nil, err
	}
	s, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errConnect, err)
	}
	opts = append([]SessionOption{WithDialect(cfg.Dialect), WithKeyspace(cfg.Keyspace)}, opts...)
	return NewSession(s, opts...), nil
}
