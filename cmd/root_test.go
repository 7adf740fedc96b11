package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"cities", "zips", "history", "summary", "tiers", "serve", "import"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "afford", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestCitiesCommand_Flags(t *testing.T) {
	flag := citiesCmd.Flags().Lookup("sort")
	require.NotNil(t, flag, "cities command should have --sort flag")
	assert.Equal(t, "name", flag.DefValue)

	flag = citiesCmd.Flags().Lookup("year")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)

	flag = citiesCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "table", flag.DefValue)
}

func TestZipsCommand_Flags(t *testing.T) {
	for _, name := range []string{"city", "year", "income", "persona", "format"} {
		assert.NotNil(t, zipsCmd.Flags().Lookup(name), "zips command should have --%s flag", name)
	}
	assert.Equal(t, "Young professional", zipsCmd.Flags().Lookup("persona").DefValue)
}

func TestHistoryCommand_Flags(t *testing.T) {
	flag := historyCmd.Flags().Lookup("city")
	require.NotNil(t, flag, "history command should have --city flag")
}

func TestSummaryCommand_Flags(t *testing.T) {
	flag := summaryCmd.Flags().Lookup("income")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)
	assert.NotNil(t, summaryCmd.Flags().Lookup("persona"))
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestImportCommand_Flags(t *testing.T) {
	flag := importCmd.Flags().Lookup("table")
	require.NotNil(t, flag)
	assert.Equal(t, "public.house_ts", flag.DefValue)

	flag = importCmd.Flags().Lookup("seed-geocode")
	require.NotNil(t, flag)
	assert.Equal(t, "true", flag.DefValue)
}

func TestRootCommand_ConfigFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag, "root command should have a persistent --config flag")
	assert.Equal(t, "", flag.DefValue)
}

func TestRootCommand_LogLevelFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, flag)
	assert.Equal(t, "info", flag.DefValue)
}

func TestSetup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "afford.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n  format: console\ncache:\n  max_entries: 12\n"), 0o644))

	oldPath, oldLevel := configPath, logLevel
	t.Cleanup(func() { configPath, logLevel = oldPath, oldLevel })
	useConfig(t, nil)
	t.Cleanup(zap.ReplaceGlobals(zap.L()))

	tests := []struct {
		name      string
		args      []string
		wantLevel string
	}{
		{"file level", nil, "warn"},
		{"flag wins", []string{"--log-level", "debug"}, "debug"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{}
			cmd.Flags().StringVar(&logLevel, "log-level", "info", "")
			require.NoError(t, cmd.ParseFlags(tt.args))

			configPath = path
			require.NoError(t, setup(cmd, nil))
			require.NotNil(t, cfg)
			assert.Equal(t, tt.wantLevel, cfg.Log.Level)
			assert.Equal(t, 12, cfg.Cache.MaxEntries)
		})
	}
}

func TestSetup_BadLevel(t *testing.T) {
	oldPath, oldLevel := configPath, logLevel
	t.Cleanup(func() { configPath, logLevel = oldPath, oldLevel })
	useConfig(t, nil)

	cmd := &cobra.Command{}
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "")
	require.NoError(t, cmd.ParseFlags([]string{"--log-level", "loud"}))

	configPath = ""
	err := setup(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init logger")
	assert.Nil(t, cfg)
}
