package config

import (
	"os"
	"path/filepath"
	"testing"

	internal "github.com/dkoroteev/gar-sync/gar"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ConfigTestSuite tests the config package functionality
type ConfigTestSuite struct {
	suite.Suite
	tempDir string
	origDir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	// Save original directory
	var err error
	suite.origDir, err = os.Getwd()
	require.NoError(suite.T(), err)

	// Create temporary directory for testing
	tempDir, err := os.MkdirTemp("", "garsync-config-test-*")
	require.NoError(suite.T(), err)
	suite.tempDir = tempDir

	// Change to temp directory
	err = os.Chdir(tempDir)
	require.NoError(suite.T(), err)
}

func (suite *ConfigTestSuite) TearDownTest() {
	// Change back to original directory
	if suite.origDir != "" {
		os.Chdir(suite.origDir)
	}

	// Clean up temporary directory
	if suite.tempDir != "" {
		os.RemoveAll(suite.tempDir)
	}
}

func (suite *ConfigTestSuite) TestLoadConfigWithDefaults() {
	// Load config without config file (should use defaults)
	cfg, err := LoadConfig("")

	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), cfg)

	assert.Equal(suite.T(), ".", cfg.GarSync.DataDir)
	assert.Equal(suite.T(), internal.DefaultRemoteBaseURL, cfg.GarSync.Remote.BaseURL)
	assert.Equal(suite.T(), internal.DefaultRemoteManifestPath, cfg.GarSync.Remote.ManifestPath)
	assert.Equal(suite.T(), 60, cfg.GarSync.Remote.TimeoutSeconds)
	assert.Equal(suite.T(), 3, cfg.GarSync.Remote.RetryAttempts)
	assert.Equal(suite.T(), 2, cfg.GarSync.Remote.RetryBaseDelaySeconds)
	assert.Equal(suite.T(), 30, cfg.GarSync.RateLimit.Capacity)
	assert.Equal(suite.T(), 60, cfg.GarSync.RateLimit.WindowSeconds)
	assert.Equal(suite.T(), 60, cfg.GarSync.Levels.CacheTTLMinutes)
	assert.Equal(suite.T(), 0, cfg.GarSync.Ingest.MaxWorkers)
	assert.Equal(suite.T(), DefaultExcludedLevelNames, cfg.GarSync.Ingest.ExcludedLevelNames)
}

func (suite *ConfigTestSuite) TestLoadConfigWithFile() {
	// Create a test config file
	configContent := `
garsync:
  dataDir: "./registry-data"
  remote:
    baseURL: "https://registry.example.com"
    manifestPath: "/api/latest"
    timeoutSeconds: 30
    retryAttempts: 5
  rateLimit:
    capacity: 10
    windowSeconds: 120
  levels:
    cacheTTLMinutes: 15
  ingest:
    maxWorkers: 8
    excludedLevelNames:
      - "Помещение"
`

	configFile := filepath.Join(suite.tempDir, "config.yaml")
	err := os.WriteFile(configFile, []byte(configContent), 0o644)
	require.NoError(suite.T(), err)

	// Load config from file
	cfg, err := LoadConfig(configFile)

	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), cfg)

	assert.Equal(suite.T(), "./registry-data", cfg.GarSync.DataDir)
	assert.Equal(suite.T(), "https://registry.example.com", cfg.GarSync.Remote.BaseURL)
	assert.Equal(suite.T(), "/api/latest", cfg.GarSync.Remote.ManifestPath)
	assert.Equal(suite.T(), 30, cfg.GarSync.Remote.TimeoutSeconds)
	assert.Equal(suite.T(), 5, cfg.GarSync.Remote.RetryAttempts)
	assert.Equal(suite.T(), 10, cfg.GarSync.RateLimit.Capacity)
	assert.Equal(suite.T(), 120, cfg.GarSync.RateLimit.WindowSeconds)
	assert.Equal(suite.T(), 15, cfg.GarSync.Levels.CacheTTLMinutes)
	assert.Equal(suite.T(), 8, cfg.GarSync.Ingest.MaxWorkers)
	assert.Equal(suite.T(), []string{"Помещение"}, cfg.GarSync.Ingest.ExcludedLevelNames)
}

func (suite *ConfigTestSuite) TestLoadConfigWithInvalidYAML() {
	configFile := filepath.Join(suite.tempDir, "config.yaml")
	err := os.WriteFile(configFile, []byte("garsync: [unbalanced"), 0o644)
	require.NoError(suite.T(), err)

	_, err = LoadConfig(configFile)
	assert.Error(suite.T(), err)
}
