package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/josephlewis42/pipesh/core"
	"github.com/josephlewis42/pipesh/core/metrics"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the shell over SSH.",
	Long: `Serve an interactive shell to SSH clients that log in with one of the
configured passwords. Commands given on the ssh command line are evaluated
and their result printed.`,
	Args: cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		os.Stdin.Close()
		cmd.SilenceUsage = true
		log.Println("Initializing server...")

		configuration, err := loadConfig()
		if err != nil {
			return err
		}
		if len(configuration.SSH.Passwords) == 0 {
			log.Println("- No passwords configured, every login will be rejected")
		}

		log.Println("Starting logger...")
		appLogger, closeLog, err := openAppLogger(configuration)
		if err != nil {
			return err
		}
		defer closeLog()

		server, err := core.NewServer(configuration, appLogger, metrics.New())
		if err != nil {
			return err
		}

		go func() {
			log.Printf("- Starting SSH server on port %d\n", configuration.SSH.Port)
			if err := server.ListenAndServe(); err != nil {
				log.Fatal(err)
			}
		}()

		sigs := make(chan os.Signal, 1)

		log.Println("- Starting interrupt handler")
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		sig := <-sigs
		log.Printf("Got signal %q, terminating...", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server shutdown failed: %s", err)
		}
		log.Print("Server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
