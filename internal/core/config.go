// Package core holds the watchdog's own configuration and version
// metadata. The supervised gateway's configuration lives elsewhere, in
// configstore.
package core

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const BaseDirName = ".config/openclaw-dashboard"

var Config *viper.Viper

// InitializeConfig loads the TOML config file (creating it with defaults
// on first run) and wires environment variable overrides.
func InitializeConfig(cmd *cobra.Command) error {
	Config = viper.New()

	configPath, err := cmd.Root().PersistentFlags().GetString("config-path")
	if err != nil || configPath == "" {
		homeDir, _ := os.UserHomeDir()
		configPath = filepath.Join(homeDir, BaseDirName)
	}
	Config.AddConfigPath(configPath)
	Config.SetConfigName("config")
	Config.SetConfigType("toml")

	homeDir, _ := os.UserHomeDir()
	openclawDir := filepath.Join(homeDir, ".openclaw")

	// Defaults
	Config.SetDefault("gateway.config_path", filepath.Join(openclawDir, "openclaw.json"))
	Config.SetDefault("gateway.stable_path", filepath.Join(openclawDir, "openclaw.stable.json"))
	Config.SetDefault("gateway.backup_dir", filepath.Join(openclawDir, "backups"))
	Config.SetDefault("gateway.log_file", filepath.Join(openclawDir, "logs", "gateway.log"))
	Config.SetDefault("gateway.cli", "openclaw")
	Config.SetDefault("gateway.process_pattern", "openclaw-gateway")
	Config.SetDefault("watchdog.check_interval", "30s")
	Config.SetDefault("watchdog.command_timeout", "30s")
	Config.SetDefault("dashboard.bind", "127.0.0.1:8900")
	Config.SetDefault("dashboard.token", "")
	Config.SetDefault("db_path", filepath.Join(configPath, "watchdog.db"))

	Config.SetEnvPrefix("openclaw_dashboard")
	Config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Config.AutomaticEnv()

	if err := Config.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// First run: create the config dir and persist the defaults.
			if err := os.MkdirAll(configPath, 0o755); err != nil {
				return err
			}
			Config.SafeWriteConfig()
		} else {
			return err
		}
	}

	return nil
}

func GetGatewayConfigPath() string {
	return Config.GetString("gateway.config_path")
}

func GetGatewayStablePath() string {
	return Config.GetString("gateway.stable_path")
}

func GetGatewayBackupDir() string {
	return Config.GetString("gateway.backup_dir")
}

func GetGatewayLogFile() string {
	return Config.GetString("gateway.log_file")
}

func GetGatewayCLI() string {
	return Config.GetString("gateway.cli")
}

func GetProcessPattern() string {
	return Config.GetString("gateway.process_pattern")
}

func GetCheckInterval() time.Duration {
	return durationOr("watchdog.check_interval", 30*time.Second)
}

func GetCommandTimeout() time.Duration {
	return durationOr("watchdog.command_timeout", 30*time.Second)
}

func GetDashboardBind() string {
	return Config.GetString("dashboard.bind")
}

func GetDashboardToken() string {
	return Config.GetString("dashboard.token")
}

func GetDBPath() string {
	return Config.GetString("db_path")
}

func durationOr(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(Config.GetString(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
