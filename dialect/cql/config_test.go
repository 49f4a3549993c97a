package cql

import (
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("USERS_CASSANDRA_HOSTS", "10.0.0.1,10.0.0.2")
	t.Setenv("USERS_CASSANDRA_KEYSPACE", "users")
	t.Setenv("USERS_CASSANDRA_CONSISTENCY", "LOCAL_QUORUM")
	t.Setenv("USERS_CASSANDRA_TIMEOUT", "750ms")
	t.Setenv("USERS_CASSANDRA_USER", "cassandra")
	t.Setenv("USERS_CASSANDRA_PASS", "secret")

	cfg, err := LoadConfig("USERS_")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.Hosts)
	assert.Equal(t, 9042, cfg.Port)
	assert.Equal(t, 750*time.Millisecond, cfg.Timeout)
	assert.Equal(t, "cassandra", cfg.Dialect)

	cluster, err := cfg.ClusterConfig()
	require.NoError(t, err)
	assert.Equal(t, "users", cluster.Keyspace)
	assert.Equal(t, gocql.LocalQuorum, cluster.Consistency)
	assert.Equal(t, gocql.PasswordAuthenticator{Username: "cassandra", Password: "secret"}, cluster.Authenticator)
	assert.Nil(t, cluster.SslOpts)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Setenv("BAD_CASSANDRA_PORT", "not-a-port")
	_, err := LoadConfig("BAD_")
	require.ErrorIs(t, err, errConfig)

	_, err = Config{Consistency: "SOMETIMES"}.ClusterConfig()
	require.ErrorIs(t, err, errConfig)
}
