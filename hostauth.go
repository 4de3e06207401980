package r66

import (
	"crypto/subtle"

	"github.com/pkg/errors"

	"github.com/openr66/r66/encoding/r66/localpacket"
	"github.com/openr66/r66/internal/digest"
)

// HostCredentials are what a server knows about one partner.
type HostCredentials struct {
	HostID  string
	Key     []byte
	Address string
	SSL     bool
	Admin   bool
}

// HostAuth resolves the credentials of a partner host.
type HostAuth interface {
	// Lookup returns the credentials of hostID for a connection that is, or is not, over TLS.
	// It returns an error wrapping ErrUnknownHost when hostID is not known.
	Lookup(hostID string, useSSL bool) (HostCredentials, error)
}

// StaticHostAuth is a HostAuth over a fixed host list.
type StaticHostAuth struct {
	hosts map[string]HostCredentials
}

// NewStaticHostAuth returns a HostAuth over the hosts of a configuration,
// deriving each key from the host password.
func NewStaticHostAuth(hosts []HostConfig) *StaticHostAuth {
	a := &StaticHostAuth{
		hosts: make(map[string]HostCredentials, len(hosts)),
	}

	for _, h := range hosts {
		a.hosts[h.ID] = HostCredentials{
			HostID:  h.ID,
			Key:     digest.CryptPassword(h.ID, h.Password),
			Address: h.Address,
			SSL:     h.SSL,
			Admin:   h.Admin,
		}
	}

	return a
}

// Lookup implements HostAuth.
// A host declared with ssl is refused on plain connections.
func (a *StaticHostAuth) Lookup(hostID string, useSSL bool) (HostCredentials, error) {
	creds, ok := a.hosts[hostID]
	if !ok {
		return HostCredentials{}, errors.Wrapf(ErrUnknownHost, "host %q", hostID)
	}

	if creds.SSL && !useSSL {
		return HostCredentials{}, errors.Errorf("host %q requires TLS", hostID)
	}

	return creds, nil
}

// keysEqual compares two authentication keys in constant time.
func keysEqual(a, b []byte) bool {
	return len(a) > 0 && subtle.ConstantTimeCompare(a, b) == 1
}

// authenticate checks an inbound Authent ASK against auth.
func authenticate(auth HostAuth, localHostID string, p *localpacket.AuthentPacket, useSSL bool) (HostCredentials, error) {
	if p.HostID == localHostID {
		return HostCredentials{}, &AuthError{
			Code: localpacket.CodeLoopSelfRequestedHost,
			Msg:  "host " + p.HostID + " connected to itself",
		}
	}

	creds, err := auth.Lookup(p.HostID, useSSL)
	if err != nil {
		code := localpacket.CodeBadAuthent
		if errors.Cause(err) == ErrUnknownHost {
			code = localpacket.CodeNotKnownHost
		}
		return HostCredentials{}, &AuthError{
			Code: code,
			Msg:  err.Error(),
		}
	}

	if !keysEqual(creds.Key, p.Key) {
		return HostCredentials{}, &AuthError{
			Code: localpacket.CodeBadAuthent,
			Msg:  "bad key for host " + p.HostID,
		}
	}

	return creds, nil
}
