package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"

	"github.com/joseph-ayodele/docrows/internal/common"
	"github.com/joseph-ayodele/docrows/internal/logging"
)

var (
	cfg    *common.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "docrows",
	Short: "Turn documents into rows of a spreadsheet schema",
	Long: `docrows reads the header row of a workbook as the target schema, sends documents to an
extraction service, maps the extracted fields onto the schema columns and writes the
resulting sheet as a new workbook.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return common.NewAppError("CONFIG_ERROR", fmt.Sprintf("load %s", envFile), errors.Join(common.ErrInvalidInput, err))
			}
		} else {
			_ = godotenv.Load()
		}

		cfg = common.LoadConfig()
		if cmd.Flags().Changed("log-level") {
			cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
		}
		if cmd.Flags().Changed("log-format") {
			cfg.Log.Format, _ = cmd.Flags().GetString("log-format")
		}
		logger = logging.New(cfg.Log.Level, cfg.Log.Format)
		slog.SetDefault(logger)
		return nil
	},
}

// Execute runs the root command and exits with a code derived from the error class.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if _, werr := fmt.Fprintf(os.Stderr, "Error: %v\n", err); werr != nil {
			fmt.Printf("Error: %v\n", err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode maps the error taxonomy onto process exit codes.
func exitCode(err error) int {
	switch common.ToStatus(err).Code() {
	case codes.OK:
		return 0
	case codes.InvalidArgument:
		return 2
	case codes.FailedPrecondition:
		return 3
	case codes.DeadlineExceeded:
		return 4
	case codes.Unavailable:
		return 5
	case codes.Canceled:
		return 130
	}
	return 1
}

func init() {
	rootCmd.PersistentFlags().String("env-file", "", "load environment variables from this file instead of ./.env")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")
}
