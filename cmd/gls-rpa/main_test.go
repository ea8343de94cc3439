package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolstock/gls-rpa/internal/config"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"run", "normalize", "reconcile", "classify"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_PersistentFlags(t *testing.T) {
	for _, name := range []string{"config", "env-file", "days-ago", "headless"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "missing --%s", name)
	}
	assert.NotNil(t, normalizeCmd.Flags().Lookup("reconcile"))
}

func newFlagCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().Int("days-ago", 0, "")
	cmd.Flags().Bool("headless", false, "")
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestApplyOverrides(t *testing.T) {
	t.Run("only changed flags apply", func(t *testing.T) {
		c := &config.Config{Report: config.ReportConfig{DaysAgo: 3}, Browser: config.BrowserConfig{Headless: true}}

		require.NoError(t, applyOverrides(newFlagCommand(t), c))

		assert.Equal(t, 3, c.Report.DaysAgo)
		assert.True(t, c.Browser.Headless)
	})

	t.Run("explicit flags win", func(t *testing.T) {
		c := &config.Config{Report: config.ReportConfig{DaysAgo: 3}, Browser: config.BrowserConfig{Headless: true}}

		require.NoError(t, applyOverrides(newFlagCommand(t, "--days-ago=1", "--headless=false"), c))

		assert.Equal(t, 1, c.Report.DaysAgo)
		assert.False(t, c.Browser.Headless)
	})

	t.Run("negative offset rejected", func(t *testing.T) {
		err := applyOverrides(newFlagCommand(t, "--days-ago=-2"), &config.Config{})
		assert.Error(t, err)
	})
}

func TestClassifyCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "GLS_20240604.xls")
	require.NoError(t, os.WriteFile(path, []byte("<!DOCTYPE html><html></html>"), 0644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"classify", path})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "html\n", out.String())
}
