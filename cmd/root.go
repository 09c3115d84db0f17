package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ninebridge/relayer/config"
	"github.com/ninebridge/relayer/internal/relayer"
	"github.com/ninebridge/relayer/pkg/db"
)

var (
	environment string
	rootCmd     = &cobra.Command{
		Use:   "relayer",
		Short: "wNCG to NCG bridge relayer",
		Run:   run,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func run(cmd *cobra.Command, args []string) {
	config.InitLogger()
	if err := config.Load(environment); err != nil {
		panic("Failed to load config: " + err.Error())
	}

	dbAdapter, err := db.NewDatabaseAdapter(config.GlobalConfig.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create database adapter")
	}

	service, err := relayer.NewService(config.GlobalConfig, dbAdapter)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create relayer service")
	}

	if err := service.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start relayer service")
	}

	// Wait for interrupt signal to gracefully shutdown the relayer
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down relayer...")
	service.Stop()
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&environment,
		"env",
		"local",
		"Environment name of the configuration file",
	)
	viper.BindPFlag("env", rootCmd.PersistentFlags().Lookup("env"))
}
