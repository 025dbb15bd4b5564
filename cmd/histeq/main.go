// Histogram equalization CLI for low-contrast image enhancement
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	appName    = "histeq"
	appVersion = "1.0.0"
)

var (
	debugMode bool
	logger    = logrus.New()
)

func main() {
	root := &cobra.Command{
		Use:     appName,
		Short:   "Low-contrast image enhancement via GHE and CLAHE with quality evaluation",
		Version: appVersion,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initLogger(debugMode)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable verbose logging")
	root.AddCommand(newEnhanceCommand())
	root.AddCommand(newAnalyzeCommand())
	root.AddCommand(newInfoCommand())

	if err := root.Execute(); err != nil {
		logger.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}

func initLogger(debug bool) {
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	if debug {
		logger.SetLevel(logrus.DebugLevel)
		logger.WithFields(logrus.Fields{
			"version": appVersion,
		}).Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
}
