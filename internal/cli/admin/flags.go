package admin

import (
	"github.com/cloo-solutions/ragchat/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const migrationsDir = "migrations"

// AddConfigFlag registers the --config flag shared by every command.
func AddConfigFlag(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "Path to a YAML config file (default: config.yaml or config/config.yaml)")
}

func addServerFlags(fs *pflag.FlagSet) {
	fs.String("host", "", "Host to listen on")
	fs.StringP("port", "p", "", "Port to listen on")
	fs.Int("workers", 0, "Size of the blocking-work pool")
	fs.Bool("trust-proxy", false, "Key the rate limiter on X-Forwarded-For / X-Real-IP")
	fs.Bool("no-migrate", false, "Skip automatic database migrations on startup")
}

// loadConfig loads the layered configuration and applies explicitly set flags on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return loadConfigWith(cmd, config.Load)
}

func loadConfigWith(cmd *cobra.Command, load func(path string) (*config.Config, error)) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	applyFlags(cmd.Flags(), cfg)
	return cfg, nil
}

func applyFlags(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("host") {
		cfg.Server.Host, _ = fs.GetString("host")
	}
	if fs.Changed("port") {
		cfg.Server.Port, _ = fs.GetString("port")
	}
	if fs.Changed("workers") {
		cfg.Server.Workers, _ = fs.GetInt("workers")
	}
	if fs.Changed("trust-proxy") {
		cfg.Server.TrustProxy, _ = fs.GetBool("trust-proxy")
	}
}
