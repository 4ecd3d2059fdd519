package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rl1809/barcode-registry/internal/config"
	"github.com/rl1809/barcode-registry/internal/logger"
)

type rootOptions struct {
	cfgFile string
	v       *viper.Viper
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{v: viper.New()}

	cmd := &cobra.Command{
		Use:          "barcoded",
		Short:        "Barcode identity registry",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().String("log-mode", "", "development or production")
	cmd.PersistentFlags().String("mysql-dsn", "", "MySQL DSN (must include parseTime=true)")
	cmd.PersistentFlags().String("redis-addr", "", "Redis address")
	_ = opts.v.BindPFlag("log.mode", cmd.PersistentFlags().Lookup("log-mode"))
	_ = opts.v.BindPFlag("mysql.dsn", cmd.PersistentFlags().Lookup("mysql-dsn"))
	_ = opts.v.BindPFlag("redis.addr", cmd.PersistentFlags().Lookup("redis-addr"))

	cmd.AddCommand(newServeCmd(opts), newExportCmd(opts))
	return cmd
}

// load resolves configuration and builds the process logger.
func (o *rootOptions) load() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(o.v, o.cfgFile)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
