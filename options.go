package r66

import (
	"crypto/tls"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/openr66/r66/monitor"
	"github.com/openr66/r66/resume"
)

// ServerOption specifies an optional that can be set on a server.
type ServerOption func(*Server) error

// WithLogger sets the logger sessions derive their entries from.
func WithLogger(log *logrus.Logger) ServerOption {
	return func(srv *Server) error {
		if log == nil {
			return errors.New("r66: nil logger")
		}
		srv.log = log
		return nil
	}
}

// WithHostAuth replaces the host list of the configuration as source of partner credentials.
func WithHostAuth(auth HostAuth) ServerOption {
	return func(srv *Server) error {
		srv.auth = auth
		return nil
	}
}

// WithFileStore sets the store transfers read from and write to.
func WithFileStore(store FileStore) ServerOption {
	return func(srv *Server) error {
		srv.store = store
		return nil
	}
}

// WithResumeStore sets where the rank of interrupted transfers is kept.
func WithResumeStore(store resume.Store) ServerOption {
	return func(srv *Server) error {
		srv.resume = store
		return nil
	}
}

// WithMonitor sets the publisher of transfer events.
func WithMonitor(pub monitor.Publisher) ServerOption {
	return func(srv *Server) error {
		srv.monitor = pub
		return nil
	}
}

// WithBusinessExecutor sets the executor of BusinessRequest actions.
func WithBusinessExecutor(exec BusinessExecutor) ServerOption {
	return func(srv *Server) error {
		srv.business = exec
		return nil
	}
}

// WithShutdownHook sets the function called once an authorized Shutdown packet was accepted.
// It runs after the server stopped accepting connections.
func WithShutdownHook(fn func(restart bool)) ServerOption {
	return func(srv *Server) error {
		srv.onShutdown = fn
		return nil
	}
}

// WithTLSConfig makes ListenAndServe accept TLS connections.
func WithTLSConfig(cfg *tls.Config) ServerOption {
	return func(srv *Server) error {
		srv.tlsConfig = cfg
		return nil
	}
}

// ClientOption specifies an optional that can be set on a client.
type ClientOption func(*Client) error

// WithClientLogger sets the logger of the client.
func WithClientLogger(log logrus.FieldLogger) ClientOption {
	return func(cl *Client) error {
		if log == nil {
			return errors.New("r66: nil logger")
		}
		cl.log = log
		return nil
	}
}

// WithRemoteHost names the partner, so its answer to authentication is checked
// against the password of its host entry.
func WithRemoteHost(hostID string) ClientOption {
	return func(cl *Client) error {
		cl.remoteHost = hostID
		return nil
	}
}

// WithClientResumeStore keeps the rank of interrupted pulls, so Recv can resume them.
func WithClientResumeStore(store resume.Store) ClientOption {
	return func(cl *Client) error {
		cl.resume = store
		return nil
	}
}

// WithSSL marks the transport as TLS, selecting the ssl host id of the configuration.
func WithSSL(ssl bool) ClientOption {
	return func(cl *Client) error {
		cl.ssl = ssl
		return nil
	}
}
