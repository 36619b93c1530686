package cmd

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/josephlewis42/pipesh/core/config"
	"github.com/josephlewis42/pipesh/core/logger"
	"github.com/spf13/cobra"
)

var cfgPath string

func loadConfig() (*config.Configuration, error) {
	configuration, err := config.Load(cfgPath)

	if errors.Is(err, fs.ErrNotExist) {
		log.Println("Couldn't load config: did you run init?")
	}

	return configuration, err
}

// loadConfigOrDefault falls back to the built in configuration if none was
// initialized.
func loadConfigOrDefault() (*config.Configuration, error) {
	configuration, err := config.Load(cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return configuration, err
}

// openAppLogger creates a logger writing to the configuration's app log. The
// returned func closes the log.
func openAppLogger(configuration *config.Configuration) (*logger.Logger, func() error, error) {
	logFd, err := configuration.OpenAppLog()
	if err != nil {
		return nil, nil, err
	}

	appLogger, err := logger.New(configuration.LoggerConfig(), logFd)
	if err != nil {
		logFd.Close()
		return nil, nil, err
	}

	return appLogger, func() error {
		appLogger.Sync()
		return logFd.Close()
	}, nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pipesh",
	Short: "A structured data shell",
	Long: `pipesh evaluates pipelines of commands that pass structured values
(records, lists and tables) to each other, and runs external programs
alongside them.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()

	var status exitStatus
	if errors.As(err, &status) {
		os.Exit(int(status))
	}
	cobra.CheckErr(err)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", ".", "config path")
}
