package r66

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/openr66/r66/encoding/r66/localpacket"
	"github.com/openr66/r66/internal/sync"
)

// conn implements a bidirectional packet channel over one transport.
// Reads happen on a single goroutine, writes may come from several.
type conn struct {
	io.ReadWriteCloser
	sync.Mutex // used to serialise writes to sendPacket

	fr  *localpacket.FrameReader
	log logrus.FieldLogger

	closeOnce sync.Once
	closeErr  error
}

func newConn(rwc io.ReadWriteCloser, opts localpacket.DecodeOptions, log logrus.FieldLogger) *conn {
	return &conn{
		ReadWriteCloser: rwc,
		fr:              localpacket.NewFrameReader(rwc, opts),
		log:             log,
	}
}

func (c *conn) recvPacket() (localpacket.Packet, error) {
	p, err := c.fr.ReadPacket()
	if err != nil {
		return nil, err
	}

	c.log.WithField("packet", p.Type()).Debug("recv")
	return p, nil
}

func (c *conn) sendPacket(p localpacket.Packet) error {
	b, err := localpacket.EncodeFrame(p)
	if err != nil {
		return err
	}

	c.Lock()
	defer c.Unlock()

	if _, err := c.Write(b); err != nil {
		return errors.Wrapf(err, "send %s", p.Type())
	}

	c.log.WithField("packet", p.Type()).Debug("send")
	return nil
}

// setLogger replaces the logger of c.
// Only the reading goroutine may call it, writers pick it up under the write lock.
func (c *conn) setLogger(log logrus.FieldLogger) {
	c.Lock()
	defer c.Unlock()

	c.log = log
}

// Close closes the transport once, later calls return the first result.
func (c *conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.ReadWriteCloser.Close()
	})
	return c.closeErr
}
