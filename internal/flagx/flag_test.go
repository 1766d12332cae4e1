package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var globalFlags = []string{"-db-dsn", "-tz", "-catalog", "--log-level"}

func TestPartition(t *testing.T) {
	cases := map[string]struct {
		args        []string
		wantMatched []string
		wantRest    []string
	}{
		"no arguments": {
			args:        nil,
			wantMatched: []string{},
			wantRest:    []string{},
		},
		"subcommand only": {
			args:        []string{"phases"},
			wantMatched: []string{},
			wantRest:    []string{"phases"},
		},
		"global flag before subcommand": {
			args:        []string{"-tz", "Europe/Paris", "current", "-dossier", "D1"},
			wantMatched: []string{"-tz", "Europe/Paris"},
			wantRest:    []string{"current", "-dossier", "D1"},
		},
		"global flag after subcommand": {
			args:        []string{"history", "-dossier", "D7", "-db-dsn", "postgres://localhost/dossiers"},
			wantMatched: []string{"-db-dsn", "postgres://localhost/dossiers"},
			wantRest:    []string{"history", "-dossier", "D7"},
		},
		"equals form": {
			args:        []string{"--log-level=debug", "advance", "-actor=42"},
			wantMatched: []string{"--log-level=debug"},
			wantRest:    []string{"advance", "-actor=42"},
		},
		"value starting with a dash is not consumed": {
			args:        []string{"-catalog", "-tz=UTC"},
			wantMatched: []string{"-catalog", "-tz=UTC"},
			wantRest:    []string{},
		},
		"trailing flag without value": {
			args:        []string{"timing", "-dossier", "D2", "-catalog"},
			wantMatched: []string{"-catalog"},
			wantRest:    []string{"timing", "-dossier", "D2"},
		},
		"repeated flag keeps every occurrence": {
			args:        []string{"-tz", "UTC", "-tz", "Europe/Paris"},
			wantMatched: []string{"-tz", "UTC", "-tz", "Europe/Paris"},
			wantRest:    []string{},
		},
		"equals value that looks like a flag": {
			args:        []string{"-catalog=--phases.yaml"},
			wantMatched: []string{"-catalog=--phases.yaml"},
			wantRest:    []string{},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			matched, rest := Partition(tc.args, globalFlags)
			assert.Equal(t, tc.wantMatched, matched)
			assert.Equal(t, tc.wantRest, rest)
		})
	}
}

func TestFilterArgs(t *testing.T) {
	args := []string{"return", "-dossier", "D3", "-tz", "UTC", "-comment", "missing annex"}

	assert.Equal(t, []string{"-tz", "UTC"}, FilterArgs(args, globalFlags))
	assert.Empty(t, FilterArgs(args, []string{"-c"}))
}

func TestStripArgs(t *testing.T) {
	args := []string{"-db-dsn", "file:x.db", "advance", "-dossier", "D1", "--log-level=warn", "-comment", "sent"}

	assert.Equal(t, []string{"advance", "-dossier", "D1", "-comment", "sent"}, StripArgs(args, globalFlags))
}

func TestPartition_ConfigFileFlags(t *testing.T) {
	matched, rest := Partition(
		[]string{"timing", "-c", "cfg.json", "-dossier", "D1", "-config=other.json"},
		ConfigFileFlags,
	)

	assert.Equal(t, []string{"-c", "cfg.json", "-config=other.json"}, matched)
	assert.Equal(t, []string{"timing", "-dossier", "D1"}, rest)
}

func TestConfigFile(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "short flag", args: []string{"-c", "/etc/dossierflow.json"}, want: "/etc/dossierflow.json"},
		{name: "long flag", args: []string{"phases", "-config", "local.json"}, want: "local.json"},
		{name: "equals form", args: []string{"-config=dev.json", "migrate"}, want: "dev.json"},
		{name: "absent", args: []string{"holidays", "list", "-tz", "UTC"}, want: ""},
		{name: "last one wins", args: []string{"-c", "a.json", "-config", "b.json"}, want: "b.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConfigFile(tt.args))
		})
	}
}
