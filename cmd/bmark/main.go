package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const serverEnv = "BMARK_SERVER"

func main() {
	rootCmd := &cobra.Command{
		Use:           "bmark",
		Short:         "bookmark manager backend and terminal client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	opts := &clientOptions{}
	rootCmd.PersistentFlags().StringVar(&opts.server, "server", os.Getenv(serverEnv), "backend base url (env "+serverEnv+")")
	rootCmd.PersistentFlags().StringVar(&opts.sessionPath, "session", "", "session file, defaults to the user config dir")
	rootCmd.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "client log file, defaults to the user cache dir")

	rootCmd.AddCommand(
		newServeCmd(),
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newListCmd(opts),
		newAddCmd(opts),
		newEditCmd(opts),
		newRemoveCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newUICmd(opts),
	)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Error("command failed", zap.Error(err))
		_, _ = os.Stderr.WriteString("bmark: " + err.Error() + "\n")
		os.Exit(1)
	}
}
