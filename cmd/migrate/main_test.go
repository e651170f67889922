package main

import (
	"bytes"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestParseOptions(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		env     map[string]string
		want    options
		wantErr string
	}{
		{
			name: "defaults from env",
			env:  map[string]string{envPostgresDSN: " postgres://env "},
			want: options{direction: "up", dsn: "postgres://env"},
		},
		{
			name: "flag wins over env",
			args: []string{"-direction=STATUS", "-dsn=postgres://flag"},
			env:  map[string]string{envPostgresDSN: "postgres://env"},
			want: options{direction: "status", dsn: "postgres://flag"},
		},
		{
			name: "down defaults to one step",
			args: []string{"-direction=down", "-dsn=postgres://flag"},
			want: options{direction: "down", steps: 1, dsn: "postgres://flag"},
		},
		{
			name: "explicit up steps",
			args: []string{"-steps=2", "-dsn=postgres://flag"},
			want: options{direction: "up", steps: 2, dsn: "postgres://flag"},
		},
		{
			name:    "missing dsn",
			args:    []string{"-direction=status"},
			wantErr: envPostgresDSN,
		},
		{
			name:    "bad direction",
			args:    []string{"-direction=sideways", "-dsn=postgres://flag"},
			wantErr: "unsupported direction",
		},
		{
			name:    "unknown flag",
			args:    []string{"-force"},
			wantErr: "flag provided but not defined",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseOptions(tt.args, envMap(tt.env))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestRun_UpStatusDown(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("ECOM_POSTGRES_TEST_DSN"))
	if dsn == "" {
		t.Skip("ECOM_POSTGRES_TEST_DSN is not set")
	}
	getenv := envMap(nil)

	var out bytes.Buffer
	require.NoError(t, run([]string{"-direction=up", "-dsn=" + dsn}, &out, getenv))
	require.Contains(t, out.String(), "migrate up ok: version=3")

	out.Reset()
	require.NoError(t, run([]string{"-direction=status", "-dsn=" + dsn}, &out, getenv))
	require.Contains(t, out.String(), "migrate status ok: version=3 applied=3")

	out.Reset()
	require.NoError(t, run([]string{"-direction=down", "-dsn=" + dsn}, &out, getenv))
	require.Contains(t, out.String(), "version=2")

	require.NoError(t, run([]string{"-direction=up", "-dsn=" + dsn}, &out, getenv))
}

func TestFailExits(t *testing.T) {
	if os.Getenv("MIGRATE_TEST_FAIL_EXIT") == "1" {
		fail("forced failure %d", 42)
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestFailExits")
	cmd.Env = append(os.Environ(), "MIGRATE_TEST_FAIL_EXIT=1")
	err := cmd.Run()
	if err == nil {
		t.Fatal("expected subprocess to exit with error")
	}
	if exitErr, ok := err.(*exec.ExitError); !ok || exitErr.ExitCode() == 0 {
		t.Fatalf("expected non-zero exit code, got %v", err)
	}
}
