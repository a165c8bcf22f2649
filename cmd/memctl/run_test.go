package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunCommand(t *testing.T) {
	tests := []struct {
		name           string
		scenario       string
		json           bool
		quiet          bool
		wantErr        bool
		wantContain    []string
		wantNotContain []string
	}{
		{
			name:     "buddy split and merge",
			scenario: "split.yaml",
			wantContain: []string{
				"== split ==",
				"LEVEL",
				"invalid-argument",
				"Fragmentation",
				"Allocated      0 bytes requested",
			},
		},
		{
			name:           "json report",
			scenario:       "split.yaml",
			json:           true,
			wantContain:    []string{`"allocator": "buddy"`, `"failures": 1`},
			wantNotContain: []string{"== split =="},
		},
		{
			name:           "quiet",
			scenario:       "split.yaml",
			quiet:          true,
			wantNotContain: []string{"== split ==", "Fragmentation"},
		},
		{
			name:        "unmet expectation",
			scenario:    "broken.yaml",
			wantErr:     true,
			wantContain: []string{"no-fit"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			jsonOut = tt.json
			quiet = tt.quiet

			output, err := captureOutput(t, func() error {
				return runRun(context.Background(), []string{testScenarioPath(t, tt.scenario)})
			})

			if (err != nil) != tt.wantErr {
				t.Errorf("runRun() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.json {
				assertJSON(t, output)
			}
			assertContains(t, output, tt.wantContain)
			assertNotContains(t, output, tt.wantNotContain)
		})
	}
}

func TestRunCommand_BadInput(t *testing.T) {
	resetFlags()

	err := runRun(context.Background(), []string{filepath.Join(t.TempDir(), "missing.yaml")})
	require.ErrorContains(t, err, "failed to open scenario")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("allocator: slab\nsize: 1\n"), 0o644))
	err = runRun(context.Background(), []string{bad})
	require.ErrorContains(t, err, `unknown allocator "slab"`)
}
