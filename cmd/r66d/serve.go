package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/openr66/r66"
)

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Answer transfer requests from partners",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for {
				restart, err := serve(opts)
				if err != nil || !restart {
					return err
				}
			}
		},
	}
}

// serve runs one server until it is closed by a signal or by a partner.
// It reports whether a partner asked for a restart.
func serve(opts *options) (restart bool, err error) {
	cfg, log, err := opts.load()
	if err != nil {
		return false, err
	}

	restarts := make(chan bool, 1)

	srv, err := r66.NewServer(cfg,
		r66.WithLogger(log),
		r66.WithShutdownHook(func(restart bool) {
			restarts <- restart
		}),
	)
	if err != nil {
		return false, err
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	signaled := make(chan struct{})
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case sig := <-sigs:
			log.WithField("signal", sig).Info("stopping")
			close(signaled)
			srv.Close()
		case <-done:
		}
	}()

	log.WithFields(logrus.Fields{
		"host_id": cfg.HostID,
		"version": cfg.Version,
	}).Info("starting")

	err = srv.ListenAndServe()
	if errors.Cause(err) != r66.ErrServerClosed {
		srv.Close()
		return false, err
	}

	// closed by a signal or by a partner shutdown, whose hook runs after Close.
	select {
	case restart = <-restarts:
	case <-signaled:
	}

	if restart {
		log.Info("restarting on partner request")
	}

	return restart, nil
}
