package r66

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openr66/r66/encoding/r66/localpacket"
	"github.com/openr66/r66/internal/digest"
)

func TestStaticHostAuth(t *testing.T) {
	auth := NewStaticHostAuth([]HostConfig{
		{ID: "plain", Password: "p1", Address: "plain:6666"},
		{ID: "secure", Password: "p2", SSL: true, Admin: true},
	})

	creds, err := auth.Lookup("plain", false)
	require.NoError(t, err)
	assert.Equal(t, digest.CryptPassword("plain", "p1"), creds.Key)
	assert.Equal(t, "plain:6666", creds.Address)

	_, err = auth.Lookup("secure", false)
	assert.ErrorContains(t, err, "requires TLS")

	creds, err = auth.Lookup("secure", true)
	require.NoError(t, err)
	assert.True(t, creds.Admin)

	_, err = auth.Lookup("ghost", false)
	assert.Equal(t, ErrUnknownHost, errors.Cause(err))
}

func TestAuthenticate(t *testing.T) {
	auth := NewStaticHostAuth([]HostConfig{
		{ID: "hostA", Password: "pw"},
		{ID: "secure", Password: "pw", SSL: true},
	})

	authent := func(host, password string) *localpacket.AuthentPacket {
		return localpacket.NewAuthentPacket(host, digest.CryptPassword(host, password), 1, DefaultVersion)
	}

	creds, err := authenticate(auth, "server", authent("hostA", "pw"), false)
	require.NoError(t, err)
	assert.Equal(t, "hostA", creds.HostID)

	tests := []struct {
		name string
		p    *localpacket.AuthentPacket
		code localpacket.ErrorCode
	}{
		{"bad password", authent("hostA", "nope"), localpacket.CodeBadAuthent},
		{"empty key", localpacket.NewAuthentPacket("hostA", nil, 1, DefaultVersion), localpacket.CodeBadAuthent},
		{"unknown", authent("ghost", "pw"), localpacket.CodeNotKnownHost},
		{"self", authent("server", "pw"), localpacket.CodeLoopSelfRequestedHost},
		{"tls only", authent("secure", "pw"), localpacket.CodeBadAuthent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := authenticate(auth, "server", tt.p, false)

			var ae *AuthError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tt.code, ae.Code)
		})
	}
}

func TestKeysEqual(t *testing.T) {
	assert.True(t, keysEqual([]byte("k"), []byte("k")))
	assert.False(t, keysEqual([]byte("k"), []byte("j")))
	assert.False(t, keysEqual(nil, nil))
}
