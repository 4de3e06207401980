package r66

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openr66/r66/encoding/r66/localpacket"
	"github.com/openr66/r66/resume"
)

func TestServerServe(t *testing.T) {
	srvCfg, cliCfg := testConfigs(t)
	srv := newTestServer(t, srvCfg)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() {
		served <- srv.Serve(ln)
	}()

	data := bytes.Repeat([]byte("over tcp "), 100)

	cl, err := Dial(testContext(t), ln.Addr().String(), cliCfg, WithClientLogger(nullLogger()), WithRemoteHost("server"))
	require.NoError(t, err)

	_, err = cl.Send(testContext(t), Transfer{Rule: "rule", Mode: localpacket.ModeSendMD5, Filename: "tcp.bin"}, bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(srvCfg.StoreDir, "tcp.bin"))
	require.NoError(t, err)
	assert.Equal(t, data, got)

	// a session left open is closed with the server.
	idle, err := Dial(testContext(t), ln.Addr().String(), cliCfg, WithClientLogger(nullLogger()))
	require.NoError(t, err)
	defer idle.Close()

	require.Eventually(t, func() bool { return srv.Sessions() == 1 }, testTimeout, 10*time.Millisecond)

	require.NoError(t, srv.Close())

	select {
	case err := <-served:
		assert.Equal(t, ErrServerClosed, err)
	case <-time.After(testTimeout):
		t.Fatal("Serve did not return")
	}

	assert.Equal(t, 0, srv.Sessions())
	assert.Error(t, idle.KeepAlive(testContext(t)))

	local, remote := net.Pipe()
	defer local.Close()
	assert.Equal(t, ErrServerClosed, srv.ServeConn(remote, "pipe", false))
}

func TestServerCloseDuringTransfer(t *testing.T) {
	srvCfg, cliCfg := testConfigs(t)
	pub := new(recordingPublisher)
	srv := newTestServer(t, srvCfg, WithMonitor(pub))

	peer := newRawPeer(t, srv)
	peer.authenticate(cliCfg)

	peer.send(localpacket.NewRequestPacket("rule", localpacket.ModeSend, "cut.bin", 100, 0, 0, "", 300))
	_, ok := peer.recv().(*localpacket.RequestPacket)
	require.True(t, ok)

	closed := make(chan error, 1)
	go func() {
		closed <- srv.Close()
	}()

	peer.expectError(localpacket.CodeShutdown, localpacket.ErrorActionClose)
	assert.Equal(t, ErrServerClosed, errors.Cause(peer.wait()))

	select {
	case err := <-closed:
		assert.NoError(t, err)
	case <-time.After(testTimeout):
		t.Fatal("Close did not return")
	}

	events := pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, localpacket.CodeShutdown, events[0].Code)
	assert.Contains(t, events[0].Err, "server closed")
}

func TestServerSSLHostID(t *testing.T) {
	srvCfg, cliCfg := testConfigs(t)
	srvCfg.SSLHostID = "server-ssl"
	cliCfg.Hosts = append(cliCfg.Hosts, HostConfig{ID: "server-ssl", Password: "server-secret"})

	srv := newTestServer(t, srvCfg)

	local, remote := net.Pipe()
	go srv.ServeConn(remote, "pipe", true)

	cl, err := NewClient(testContext(t), local, cliCfg, WithClientLogger(nullLogger()), WithSSL(true), WithRemoteHost("server-ssl"))
	require.NoError(t, err)
	defer cl.Close()

	assert.Equal(t, "server-ssl", cl.Remote().HostID)
}

func TestNewServerDefaults(t *testing.T) {
	srvCfg, _ := testConfigs(t)
	srvCfg.Redis.Addr = "127.0.0.1:1"

	srv, err := NewServer(srvCfg)
	require.NoError(t, err)

	assert.IsType(t, &resume.Redis{}, srv.resume)
	assert.NotNil(t, srv.store)
	assert.NotNil(t, srv.business)
	assert.NotNil(t, srv.monitor)
	assert.Len(t, srv.closers, 1)

	require.NoError(t, srv.Close())
	assert.Empty(t, srv.closers)
}

func TestNewServerErrors(t *testing.T) {
	srvCfg, _ := testConfigs(t)
	srvCfg.NATS.URL = "nats://127.0.0.1:1"

	_, err := NewServer(srvCfg)
	assert.Error(t, err)

	srvCfg, _ = testConfigs(t)
	srvCfg.Password = ""

	_, err = NewServer(srvCfg)
	assert.Error(t, err)

	srvCfg, _ = testConfigs(t)
	_, err = NewServer(srvCfg, WithLogger(nil))
	assert.Error(t, err)
}

func TestServerBlocked(t *testing.T) {
	srvCfg, _ := testConfigs(t)
	srv := newTestServer(t, srvCfg)

	assert.False(t, srv.Blocked())
	srv.SetBlocked(true)
	assert.True(t, srv.Blocked())
	assert.Equal(t, 0, srv.Partners().Len())
	assert.NotNil(t, srv.Logger())
}
