// Package cmd holds the laia command line: the HTTP server, a terminal chat
// and the database migration.
package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	configx "github.com/tanpawarit/laia-quote-agent/pkg/config"
	logx "github.com/tanpawarit/laia-quote-agent/pkg/logger"
)

func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func NewRootCommand() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "laia",
		Short:         "LAIA quoting assistant for traffic studies",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(envFile) != "" {
				configx.SetEnvFile(envFile)
			}
			// LOG_* may live in the env file, so the logger is rebuilt here.
			logCfg, err := configx.New[logx.Config]("LOG")
			if err != nil {
				return err
			}
			logx.Init(*logCfg)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env", "", "path to an env file (default .env when present)")

	root.AddCommand(
		newServeCommand(),
		newChatCommand(),
		newMigrateCommand(),
	)
	return root
}
