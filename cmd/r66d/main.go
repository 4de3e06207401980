// Command r66d runs an R66 server, or requests transfers from one.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/openr66/r66"
)

type options struct {
	configPath string
	verbose    bool
}

func (o *options) load() (*r66.Config, *logrus.Logger, error) {
	cfg, err := r66.LoadConfig(o.configPath)
	if err != nil {
		return nil, nil, err
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	if o.verbose {
		level = logrus.DebugLevel
	}

	log := logrus.New()
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	return cfg, log, nil
}

func newRootCommand() *cobra.Command {
	opts := new(options)

	root := &cobra.Command{
		Use:           "r66d",
		Short:         "R66 managed file transfers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "r66.yaml", "configuration file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newServeCommand(opts),
		newSendCommand(opts),
		newRecvCommand(opts),
		newListCommand(opts),
		newStatusCommand(opts),
		newBlockCommand(opts),
		newShutdownCommand(opts),
	)

	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logrus.WithError(err).Error("r66d")
		os.Exit(1)
	}
}
