package r66

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/openr66/r66/encoding/r66/localpacket"
	"github.com/openr66/r66/internal/digest"
	"github.com/openr66/r66/internal/sync"
	"github.com/openr66/r66/resume"
)

var localIDs atomic.Int32

// Client is the requester side of one connection.
//
// Side requests (KeepAlive, Test, Business, Information, JSONCommand, Block) may be repeated,
// one at a time. A transfer ends the session: after Send or Recv the Client is closed.
type Client struct {
	cfg  *Config
	conn *conn
	log  logrus.FieldLogger

	remoteHost string
	ssl        bool
	resume     resume.Store

	localID  int32
	partners *PartnerTable
	remote   Partner
	chunks   *sync.SlicePool[[]byte, byte]

	mu       sync.Mutex // one exchange at a time
	incoming chan localpacket.Packet

	closed    chan struct{}
	closeOnce sync.Once
	abortOnce sync.Once
	err       error
}

// Dial connects to addr and authenticates.
func Dial(ctx context.Context, addr string, cfg *Config, opts ...ClientOption) (*Client, error) {
	var d net.Dialer

	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}

	return NewClient(ctx, c, cfg, opts...)
}

// DialTLS connects to addr over TLS and authenticates with the ssl host id of cfg.
func DialTLS(ctx context.Context, addr string, cfg *Config, tlsConfig *tls.Config, opts ...ClientOption) (*Client, error) {
	d := tls.Dialer{
		Config: tlsConfig,
	}

	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}

	return NewClient(ctx, c, cfg, append([]ClientOption{WithSSL(true)}, opts...)...)
}

// NewClient authenticates over rwc, which the Client then owns.
func NewClient(ctx context.Context, rwc io.ReadWriteCloser, cfg *Config, opts ...ClientOption) (*Client, error) {
	partners, err := NewPartnerTable(cfg.JSONMinVersion)
	if err != nil {
		rwc.Close()
		return nil, err
	}

	cl := &Client{
		cfg:      cfg,
		log:      logrus.StandardLogger(),
		localID:  localIDs.Add(1),
		partners: partners,
		chunks:   sync.NewSlicePool[[]byte](4, int(cfg.BlockSize)),
		incoming: make(chan localpacket.Packet),
		closed:   make(chan struct{}),
	}

	for _, opt := range opts {
		if err := opt(cl); err != nil {
			rwc.Close()
			return nil, err
		}
	}

	cl.conn = newConn(rwc, cfg.DecodeOptions(), cl.log)

	go cl.recvLoop()

	if err := cl.authenticate(ctx); err != nil {
		cl.abort(err)
		return nil, err
	}

	return cl, nil
}

// Remote returns the partner the client authenticated with.
func (cl *Client) Remote() Partner {
	return cl.remote
}

func (cl *Client) recvLoop() {
	for {
		p, err := cl.conn.recvPacket()
		if err != nil {
			cl.disconnect(err)
			return
		}

		switch p := p.(type) {
		case *localpacket.KeepAlivePacket:
			if p.IsToValidate() {
				if err := cl.conn.sendPacket(p.Validate()); err != nil {
					cl.disconnect(err)
					return
				}
				continue
			}
		case *localpacket.NoOpPacket:
			continue
		}

		select {
		case cl.incoming <- p:
		case <-cl.closed:
			return
		}
	}
}

func (cl *Client) disconnect(err error) {
	cl.closeOnce.Do(func() {
		cl.err = err
		close(cl.closed)
		cl.conn.Close()
	})
}

// abort reports err to the server, unless it came from the server, and closes the connection.
func (cl *Client) abort(err error) {
	cl.abortOnce.Do(func() {
		select {
		case <-cl.closed:
			return
		default:
		}

		if p := diagnosticFor(err); p != nil {
			if serr := cl.conn.sendPacket(p); serr != nil {
				cl.log.WithError(serr).Debug("diagnostic not delivered")
			}
		}
	})

	cl.disconnect(err)
}

// Close ends the session without further exchange.
func (cl *Client) Close() error {
	cl.disconnect(ErrSessionClosed)
	return nil
}

func (cl *Client) next(ctx context.Context) (localpacket.Packet, error) {
	select {
	case p := <-cl.incoming:
		return p, nil
	case <-cl.closed:
		return nil, cl.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// expect returns the next packet, which must be of type want.
// A diagnostic from the server is returned as a *RemoteError.
func (cl *Client) expect(ctx context.Context, want localpacket.PacketType) (localpacket.Packet, error) {
	p, err := cl.next(ctx)
	if err != nil {
		return nil, err
	}

	if re := remoteError(p); re != nil {
		if re.Action.Closes() {
			cl.disconnect(re)
		}
		return nil, re
	}

	if p.Type() != want {
		return nil, protocolErrorf(localpacket.CodeIncorrectCommand, "%s received, %s expected", p.Type(), want)
	}

	return p, nil
}

// roundTrip sends p and waits for its answer of type want.
func (cl *Client) roundTrip(ctx context.Context, p localpacket.Packet, want localpacket.PacketType) (localpacket.Packet, error) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if err := cl.conn.sendPacket(p); err != nil {
		cl.disconnect(err)
		return nil, err
	}

	return cl.expect(ctx, want)
}

func (cl *Client) authenticate(ctx context.Context) error {
	if err := cl.conn.sendPacket(&localpacket.StartupPacket{LocalID: cl.localID, FromSSL: cl.ssl}); err != nil {
		return err
	}

	ask := localpacket.NewAuthentPacket(cl.cfg.localHostID(cl.ssl), cl.cfg.Key(cl.ssl), cl.localID, cl.cfg.Version)

	p, err := cl.roundTrip(ctx, ask, localpacket.PacketTypeAuthent)
	if err != nil {
		return err
	}

	answer := p.(*localpacket.AuthentPacket)
	if !answer.IsAnswer() {
		return protocolErrorf(localpacket.CodeIncorrectCommand, "authentication asked by the server")
	}

	if cl.remoteHost != "" {
		if answer.HostID != cl.remoteHost {
			return &AuthError{
				Code: localpacket.CodeBadAuthent,
				Msg:  "server answered as " + answer.HostID + ", not " + cl.remoteHost,
			}
		}

		if h, ok := cl.cfg.Host(cl.remoteHost); ok && h.Password != "" {
			if !keysEqual(digest.CryptPassword(h.ID, h.Password), answer.Key) {
				return &AuthError{
					Code: localpacket.CodeBadAuthent,
					Msg:  "bad key for host " + answer.HostID,
				}
			}
		}
	}

	cl.remote = cl.partners.Register(answer.HostID, answer.Version)
	cl.log = cl.log.WithField("remote_host", answer.HostID)

	return nil
}

// KeepAlive checks the server still answers.
func (cl *Client) KeepAlive(ctx context.Context) error {
	_, err := cl.roundTrip(ctx, &localpacket.KeepAlivePacket{Way: localpacket.WayAsk}, localpacket.PacketTypeKeepAlive)
	return err
}

// Test sends a test message and returns the code the server answered, which is code+1.
func (cl *Client) Test(ctx context.Context, msg string, code int32) (int32, error) {
	p, err := cl.roundTrip(ctx, &localpacket.TestPacket{Header: msg, Middle: msg, Code: code}, localpacket.PacketTypeTest)
	if err != nil {
		return 0, err
	}
	return p.(*localpacket.TestPacket).Code, nil
}

// Business runs action on the server and returns its result.
// A positive delay bounds the execution, in milliseconds.
func (cl *Client) Business(ctx context.Context, action string, delay int32) (string, error) {
	p, err := cl.roundTrip(ctx, localpacket.NewBusinessRequestPacket(action, delay), localpacket.PacketTypeBusinessRequest)
	if err != nil {
		return "", err
	}

	answer := p.(*localpacket.BusinessRequestPacket)
	if answer.Way == localpacket.WayInvalidate {
		return "", errors.Errorf("r66: business action %q failed: %s", action, answer.Action)
	}

	return answer.Action, nil
}

// Information queries the files of a rule on the server.
// It returns the answer lines and the count the server announced.
func (cl *Client) Information(ctx context.Context, rule string, req localpacket.InformationRequest, filename string) (string, int, error) {
	p, err := cl.roundTrip(ctx, &localpacket.InformationPacket{Rule: rule, Request: req, Filename: filename}, localpacket.PacketTypeValid)
	if err != nil {
		return "", 0, err
	}

	answer := p.(*localpacket.ValidPacket)

	var n int
	if answer.Middle != "" {
		if n, err = strconv.Atoi(answer.Middle); err != nil {
			return "", 0, errors.Wrapf(err, "information count %q", answer.Middle)
		}
	}

	return answer.Header, n, nil
}

// JSONCommand sends the JSON encoding of v and returns the JSON result.
func (cl *Client) JSONCommand(ctx context.Context, v interface{}) (string, error) {
	req, err := localpacket.NewJSONCommandPacket(v, "", localpacket.PacketTypeJSONRequest)
	if err != nil {
		return "", err
	}

	p, err := cl.roundTrip(ctx, req, localpacket.PacketTypeJSONRequest)
	if err != nil {
		return "", err
	}

	return p.(*localpacket.JSONCommandPacket).Result, nil
}

// Block makes the server refuse, or accept again, new transfer requests.
func (cl *Client) Block(ctx context.Context, adminPassword string, block bool) error {
	p := &localpacket.BlockRequestPacket{
		Block: block,
		Key:   AdminKey(cl.remote.HostID, adminPassword),
	}

	_, err := cl.roundTrip(ctx, p, localpacket.PacketTypeValid)
	return err
}

// Shutdown stops the server. The Client is closed afterwards.
func (cl *Client) Shutdown(ctx context.Context, adminPassword string, restart bool) error {
	p := &localpacket.ShutdownPacket{
		Key:     AdminKey(cl.remote.HostID, adminPassword),
		Restart: restart,
	}

	_, err := cl.roundTrip(ctx, p, localpacket.PacketTypeValid)
	cl.Close()
	return err
}

func (t Transfer) blockSize(cfg *Config) int32 {
	if t.BlockSize >= localpacket.MinBlockSize {
		return t.BlockSize
	}
	return cfg.BlockSize
}

// request negotiates t and returns the answer of the server.
func (cl *Client) request(ctx context.Context, t Transfer, rank int32, size int64) (*localpacket.RequestPacket, error) {
	if !t.Mode.Valid() || t.Mode == localpacket.ModeUnknown {
		return nil, errors.Errorf("r66: invalid transfer mode %d", int32(t.Mode))
	}

	enc := cl.partners.Encoding(cl.remote.HostID, cl.cfg.FieldSeparator)
	ask := localpacket.NewRequestPacket(t.Rule, t.Mode, t.Filename, t.blockSize(cl.cfg), rank, t.SpecialID, t.Info, size).WithEncoding(enc)

	if err := cl.conn.sendPacket(ask); err != nil {
		return nil, err
	}

	p, err := cl.expect(ctx, localpacket.PacketTypeRequest)
	if err != nil {
		return nil, err
	}

	answer := p.(*localpacket.RequestPacket)
	if answer.IsToValidate() {
		return nil, protocolErrorf(localpacket.CodeIncorrectCommand, "request asked by the server")
	}

	cl.log.WithFields(logrus.Fields{
		"special_id": answer.SpecialID,
		"rank":       answer.Rank,
	}).Debug("request accepted")

	return answer, nil
}

// endRequest closes the transfer handshake.
func (cl *Client) endRequest(ctx context.Context) error {
	if err := cl.conn.sendPacket(localpacket.NewEndRequestPacket(localpacket.CodeCompleteOk, "")); err != nil {
		return err
	}

	_, err := cl.expect(ctx, localpacket.PacketTypeEndRequest)
	return err
}

// SendFile pushes the local file at path.
func (cl *Client) SendFile(ctx context.Context, t Transfer, path string) (*TransferResult, error) {
	f, err := os.Open(path)
	if err != nil {
		cl.Close()
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		cl.Close()
		return nil, err
	}

	return cl.Send(ctx, t, f, fi.Size())
}

// Send pushes size bytes read from r, starting at the rank the server asks for.
func (cl *Client) Send(ctx context.Context, t Transfer, r io.ReaderAt, size int64) (*TransferResult, error) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	defer cl.Close()

	if t.Mode.IsRecv() {
		return nil, errors.Errorf("r66: %s is a receive mode", t.Mode)
	}

	answer, err := cl.request(ctx, t, 0, size)
	if err != nil {
		cl.abort(err)
		return nil, err
	}

	snd := newSender(r, size, answer.BlockSize, cl.cfg.DigestAlgorithm(), t.Mode.IsMD5(), cl.chunks)

	rewind := make(chan int32, 1)
	done := make(chan struct{})
	streamed := make(chan struct{})

	go func() {
		defer close(streamed)

		if err := stream(ctx, cl.conn, snd, answer.Rank, rewind, done); err != nil {
			cl.abort(err)
		}
	}()

	err = cl.awaitEndTransfer(ctx, rewind)
	close(done)
	<-streamed

	if err != nil {
		cl.abort(err)
		return nil, err
	}

	if err := cl.endRequest(ctx); err != nil {
		cl.abort(err)
		return nil, err
	}

	return &TransferResult{
		SpecialID: answer.SpecialID,
		StartRank: answer.Rank,
		Bytes:     snd.sent,
		Code:      localpacket.CodeCompleteOk,
	}, nil
}

func (cl *Client) awaitEndTransfer(ctx context.Context, rewind chan int32) error {
	for {
		p, err := cl.next(ctx)
		if err != nil {
			return err
		}

		switch p := p.(type) {
		case *localpacket.ErrorPacket:
			if rank, ok := parseRetry(p); ok {
				select {
				case <-rewind:
				default:
				}
				rewind <- rank
				continue
			}

			if !p.Action.Closes() {
				cl.log.WithField("code", p.Code()).Warn("remote error: ", p.Header)
				continue
			}
			return remoteError(p)

		case *localpacket.ConnectionErrorPacket:
			return remoteError(p)

		case *localpacket.EndTransferPacket:
			if !p.IsToValidate() {
				return nil
			}
		}

		return protocolErrorf(localpacket.CodeIncorrectCommand, "%s received during transfer", p.Type())
	}
}

// RecvFile pulls into the local file at path.
// With a resume store and a known special id, a partial file is completed from the last saved rank.
func (cl *Client) RecvFile(ctx context.Context, t Transfer, path string) (*TransferResult, error) {
	var rank int32
	if t.SpecialID != 0 && cl.resume != nil {
		r, ok, err := cl.resume.Load(ctx, cl.resumeKey(t.SpecialID))
		if err != nil {
			cl.log.WithError(err).Warn("resume store unavailable, restarting transfer")
		} else if ok {
			rank = r
		}
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o640)
	if err != nil {
		cl.Close()
		return nil, err
	}
	defer f.Close()

	offset := int64(rank) * int64(t.blockSize(cl.cfg))
	if err := f.Truncate(offset); err != nil {
		cl.Close()
		return nil, err
	}

	res, err := cl.recv(ctx, t, f, io.NewSectionReader(f, 0, offset), rank)
	if err != nil {
		return nil, err
	}

	return res, f.Sync()
}

// Recv pulls the remote file into w from its start.
func (cl *Client) Recv(ctx context.Context, t Transfer, w io.WriterAt) (*TransferResult, error) {
	return cl.recv(ctx, t, w, nil, 0)
}

func (cl *Client) resumeKey(id int64) resume.Key {
	return resume.Key{
		Host:      cl.remote.HostID,
		SpecialID: id,
	}
}

func (cl *Client) recv(ctx context.Context, t Transfer, w io.WriterAt, prefix io.Reader, rank int32) (*TransferResult, error) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	defer cl.Close()

	if !t.Mode.IsRecv() {
		return nil, errors.Errorf("r66: %s is a send mode", t.Mode)
	}

	answer, err := cl.request(ctx, t, rank, -1)
	if err != nil {
		cl.abort(err)
		return nil, err
	}

	if answer.Rank != rank {
		err := protocolErrorf(localpacket.CodeTransferError, "server restarts at rank %d, %d asked", answer.Rank, rank)
		cl.abort(err)
		return nil, err
	}

	rcv, err := newReceiver(w, prefix, answer, cl.cfg.DigestAlgorithm(), cl.cfg.MaxDigestRetries)
	if err == nil {
		err = cl.receive(ctx, rcv, answer.SpecialID)
	}
	if err == nil {
		err = cl.endRequest(ctx)
	}
	if err != nil {
		cl.abort(err)
		return nil, err
	}

	if cl.resume != nil {
		if err := cl.resume.Delete(ctx, cl.resumeKey(answer.SpecialID)); err != nil {
			cl.log.WithError(err).Warn("clear resume rank")
		}
	}

	return &TransferResult{
		SpecialID: answer.SpecialID,
		StartRank: answer.Rank,
		Bytes:     rcv.bytes - int64(answer.Rank)*int64(answer.BlockSize),
		Code:      localpacket.CodeCompleteOk,
	}, nil
}

func (cl *Client) receive(ctx context.Context, rcv *receiver, id int64) error {
	for {
		p, err := cl.next(ctx)
		if err != nil {
			return err
		}

		switch p := p.(type) {
		case *localpacket.DataPacket:
			before := rcv.expected

			reply, err := rcv.receive(p)
			if err != nil {
				return err
			}

			if reply != nil {
				cl.log.WithField("rank", p.Rank).Warn("chunk digest mismatch, asking retransmission")
				if err := cl.conn.sendPacket(reply); err != nil {
					return err
				}
				continue
			}

			if cl.resume != nil && rcv.expected != before {
				if err := cl.resume.Save(ctx, cl.resumeKey(id), rcv.expected); err != nil {
					cl.log.WithError(err).Warn("save resume rank")
				}
			}
			continue

		case *localpacket.EndTransferPacket:
			if !p.IsToValidate() {
				break
			}

			if rcv.pending {
				continue
			}

			if err := rcv.finish(p); err != nil {
				return err
			}

			return cl.conn.sendPacket(p.Validate())

		case *localpacket.ErrorPacket:
			if !p.Action.Closes() {
				cl.log.WithField("code", p.Code()).Warn("remote error: ", p.Header)
				continue
			}
			return remoteError(p)

		case *localpacket.ConnectionErrorPacket:
			return remoteError(p)
		}

		return protocolErrorf(localpacket.CodeIncorrectCommand, "%s received during transfer", p.Type())
	}
}
