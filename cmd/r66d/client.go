package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/openr66/r66"
	"github.com/openr66/r66/encoding/r66/localpacket"
	"github.com/openr66/r66/resume"
)

// peerFlags select the partner a client command talks to.
type peerFlags struct {
	to      string
	addr    string
	timeout time.Duration
}

func (f *peerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.to, "to", "", "host id of the partner")
	cmd.Flags().StringVar(&f.addr, "addr", "", "address of the partner, overriding its host entry")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "abort after this long, 0 for no limit")
	cmd.MarkFlagRequired("to")
}

// target resolves the address of the partner and whether it is reached over TLS.
func (f *peerFlags) target(cfg *r66.Config) (addr string, ssl bool, err error) {
	h, ok := cfg.Host(f.to)

	addr = f.addr
	if addr == "" {
		if !ok || h.Address == "" {
			return "", false, errors.Errorf("no address known for host %q", f.to)
		}
		addr = h.Address
	}

	return addr, ok && h.SSL, nil
}

func (f *peerFlags) context() (context.Context, context.CancelFunc) {
	if f.timeout > 0 {
		return context.WithTimeout(context.Background(), f.timeout)
	}
	return context.WithCancel(context.Background())
}

func (f *peerFlags) dial(ctx context.Context, cfg *r66.Config, log *logrus.Logger, extra ...r66.ClientOption) (*r66.Client, error) {
	addr, ssl, err := f.target(cfg)
	if err != nil {
		return nil, err
	}

	opts := append([]r66.ClientOption{
		r66.WithClientLogger(log.WithField("partner", f.to)),
		r66.WithRemoteHost(f.to),
	}, extra...)

	if ssl {
		return r66.DialTLS(ctx, addr, cfg, &tls.Config{MinVersion: tls.VersionTLS12}, opts...)
	}

	return r66.Dial(ctx, addr, cfg, opts...)
}

// resumeStore returns the Redis resume store of the configuration, if any.
func resumeStore(cfg *r66.Config) (resume.Store, func() error) {
	if cfg.Redis.Addr == "" {
		return nil, func() error { return nil }
	}

	client := r66.NewRedisClient(cfg.Redis)
	return resume.NewRedis(client, cfg.Redis.Prefix, 0), client.Close
}

type transferFlags struct {
	peerFlags

	rule       string
	file       string
	remoteName string
	mode       string
	blockSize  int32
	specialID  int64
	info       string
}

func (f *transferFlags) register(cmd *cobra.Command, defaultMode string) {
	f.peerFlags.register(cmd)

	cmd.Flags().StringVar(&f.rule, "rule", "", "transfer rule")
	cmd.Flags().StringVar(&f.file, "file", "", "local file")
	cmd.Flags().StringVar(&f.remoteName, "remote-name", "", "file name on the partner, the base name of --file by default")
	cmd.Flags().StringVar(&f.mode, "mode", defaultMode, "transfer mode")
	cmd.Flags().Int32Var(&f.blockSize, "block-size", 0, "chunk size, the configured one by default")
	cmd.Flags().Int64Var(&f.specialID, "id", 0, "id of an interrupted transfer to resume")
	cmd.Flags().StringVar(&f.info, "info", "", "free text attached to the request")

	cmd.MarkFlagRequired("rule")
	cmd.MarkFlagRequired("file")
}

func (f *transferFlags) transfer() (r66.Transfer, error) {
	mode, err := r66.ParseTransferMode(f.mode)
	if err != nil {
		return r66.Transfer{}, err
	}

	name := f.remoteName
	if name == "" {
		name = filepath.Base(f.file)
	}

	return r66.Transfer{
		Rule:      f.rule,
		Mode:      mode,
		Filename:  name,
		BlockSize: f.blockSize,
		SpecialID: f.specialID,
		Info:      f.info,
	}, nil
}

func report(log *logrus.Logger, t r66.Transfer, res *r66.TransferResult) {
	log.WithFields(logrus.Fields{
		"special_id": res.SpecialID,
		"start_rank": res.StartRank,
		"bytes":      res.Bytes,
		"code":       res.Code,
	}).Info("transfer complete: ", t)
}

func newSendCommand(opts *options) *cobra.Command {
	var f transferFlags

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Push a local file to a partner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}

			t, err := f.transfer()
			if err != nil {
				return err
			}

			ctx, cancel := f.context()
			defer cancel()

			cl, err := f.dial(ctx, cfg, log)
			if err != nil {
				return err
			}

			res, err := cl.SendFile(ctx, t, f.file)
			if err != nil {
				return err
			}

			report(log, t, res)
			return nil
		},
	}

	f.register(cmd, "sendmd5")
	return cmd
}

func newRecvCommand(opts *options) *cobra.Command {
	var f transferFlags

	cmd := &cobra.Command{
		Use:   "recv",
		Short: "Pull a file from a partner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}

			t, err := f.transfer()
			if err != nil {
				return err
			}

			ctx, cancel := f.context()
			defer cancel()

			store, closeStore := resumeStore(cfg)
			defer closeStore()

			var extra []r66.ClientOption
			if store != nil {
				extra = append(extra, r66.WithClientResumeStore(store))
			}

			cl, err := f.dial(ctx, cfg, log, extra...)
			if err != nil {
				return err
			}

			res, err := cl.RecvFile(ctx, t, f.file)
			if err != nil {
				return err
			}

			report(log, t, res)
			return nil
		},
	}

	f.register(cmd, "recvmd5")
	return cmd
}

func newListCommand(opts *options) *cobra.Command {
	var (
		f       peerFlags
		rule    string
		pattern string
		detail  bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the files a partner holds for a rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}

			ctx, cancel := f.context()
			defer cancel()

			cl, err := f.dial(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer cl.Close()

			req := localpacket.AskList
			if detail {
				req = localpacket.AskMLSList
			}

			lines, n, err := cl.Information(ctx, rule, req, pattern)
			if err != nil {
				return err
			}

			if n > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), lines)
			}
			return nil
		},
	}

	f.register(cmd)
	cmd.Flags().StringVar(&rule, "rule", "", "transfer rule")
	cmd.Flags().StringVar(&pattern, "pattern", "", "base name pattern, every file by default")
	cmd.Flags().BoolVarP(&detail, "long", "l", false, "machine listing with size and date")

	return cmd
}

func newStatusCommand(opts *options) *cobra.Command {
	var f peerFlags

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the status of a partner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}

			ctx, cancel := f.context()
			defer cancel()

			cl, err := f.dial(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer cl.Close()

			result, err := cl.JSONCommand(ctx, map[string]string{"command": "status"})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		},
	}

	f.register(cmd)
	return cmd
}

func newBlockCommand(opts *options) *cobra.Command {
	var (
		f       peerFlags
		unblock bool
	)

	cmd := &cobra.Command{
		Use:   "block",
		Short: "Make a partner refuse new transfers, or accept them again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}

			ctx, cancel := f.context()
			defer cancel()

			cl, err := f.dial(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer cl.Close()

			return cl.Block(ctx, cfg.AdminPassword, !unblock)
		},
	}

	f.register(cmd)
	cmd.Flags().BoolVar(&unblock, "unblock", false, "accept new transfers again")

	return cmd
}

func newShutdownCommand(opts *options) *cobra.Command {
	var (
		f       peerFlags
		restart bool
	)

	cmd := &cobra.Command{
		Use:   "shutdown",
		Short: "Stop a partner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}

			if strings.TrimSpace(cfg.AdminPassword) == "" {
				return errors.New("admin_password is not configured")
			}

			ctx, cancel := f.context()
			defer cancel()

			cl, err := f.dial(ctx, cfg, log)
			if err != nil {
				return err
			}

			return cl.Shutdown(ctx, cfg.AdminPassword, restart)
		},
	}

	f.register(cmd)
	cmd.Flags().BoolVar(&restart, "restart", false, "ask the partner to start again")

	return cmd
}
