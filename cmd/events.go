package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/josephlewis42/pipesh/core/logger"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

var (
	reportKind string
	reportJSON bool
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Explore the application event log.",
}

var reportCommand = &cobra.Command{
	Use:   "report",
	Short: "Summarize logins, sessions and programs run from the app log.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := loadConfig()
		if err != nil {
			return err
		}

		fd, err := configuration.ReadAppLog()
		if err != nil {
			return err
		}
		defer fd.Close()

		report := logger.NewReport()
		update := report.Update
		if reportKind != "" {
			update = func(le logger.Entry) {
				if le.String(logger.FieldSessionKind) == reportKind {
					report.Update(le)
				}
			}
		}
		if err := logger.ReadJSONLinesLog(fd, update, report.Invalid); err != nil {
			return err
		}

		marshal := yaml.Marshal
		if reportJSON {
			marshal = func(v interface{}) ([]byte, error) {
				out, err := json.MarshalIndent(v, "", "  ")
				return append(out, '\n'), err
			}
		}

		out, err := marshal(report)
		if err != nil {
			return fmt.Errorf("formatting report: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(reportCommand)

	reportCommand.Flags().StringVar(&reportKind, "kind", "", "only count sessions of this kind: run, playground or ssh")
	reportCommand.Flags().BoolVar(&reportJSON, "json", false, "print the report as JSON instead of YAML")
}
