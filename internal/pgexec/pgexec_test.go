package pgexec

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildEnvOmitsUnsetFields(t *testing.T) {
	env := buildEnv(Options{Host: "db.internal"})
	require.Contains(t, env, "PGHOST=db.internal")
	for _, e := range env {
		require.NotContains(t, e, "PGPORT=")
		require.NotContains(t, e, "PGUSER=")
		require.NotContains(t, e, "PGPASSWORD=")
		require.NotContains(t, e, "PGDATABASE=")
	}
}

func TestBuildEnvIncludesAllSetFields(t *testing.T) {
	env := buildEnv(Options{Host: "db", Port: 5433, User: "svc", Password: "secret", Database: "app"})
	require.Contains(t, env, "PGHOST=db")
	require.Contains(t, env, "PGPORT=5433")
	require.Contains(t, env, "PGUSER=svc")
	require.Contains(t, env, "PGPASSWORD=secret")
	require.Contains(t, env, "PGDATABASE=app")
}

func TestOptionsBinaryDefault(t *testing.T) {
	require.Equal(t, "pg_dump", Options{}.binary())
	require.Equal(t, "/opt/pg/bin/pg_dump", Options{Binary: "/opt/pg/bin/pg_dump"}.binary())
}

func TestStartTwiceErrors(t *testing.T) {
	l := New(Options{Database: "app", Binary: "true"})
	l.cmd = exec.Command("true")
	_, err := l.Start(context.Background())
	require.Error(t, err)
}

func TestStartArgsPassDatabaseOnlyViaEnv(t *testing.T) {
	l := New(Options{Database: "app", Tables: []string{"users"}, Binary: "true"})
	_, err := l.Start(context.Background())
	require.NoError(t, err)
	require.NoError(t, l.Wait())

	require.Equal(t, []string{"true", "-Fc", "-t", "users"}, l.cmd.Args)
	require.Contains(t, l.cmd.Env, "PGDATABASE=app")
}
