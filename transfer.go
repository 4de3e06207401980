package r66

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/openr66/r66/encoding/r66/localpacket"
	"github.com/openr66/r66/internal/digest"
	"github.com/openr66/r66/internal/sync"
)

const retryRankPrefix = "rank="

// retryPacket asks the sender to retransmit from rank.
func retryPacket(rank int32) *localpacket.ErrorPacket {
	return localpacket.NewErrorPacket(retryRankPrefix+strconv.FormatInt(int64(rank), 10), localpacket.CodeMD5Error, localpacket.ErrorActionIgnore)
}

// parseRetry returns the rank a retransmission request asks for.
func parseRetry(p *localpacket.ErrorPacket) (int32, bool) {
	if p.Action != localpacket.ErrorActionIgnore || p.Code() != localpacket.CodeMD5Error {
		return 0, false
	}

	s, ok := strings.CutPrefix(p.Header, retryRankPrefix)
	if !ok {
		return 0, false
	}

	rank, err := strconv.ParseInt(s, 10, 32)
	if err != nil || rank < 0 {
		return 0, false
	}

	return int32(rank), true
}

// newSpecialID returns a fresh positive transfer id.
func newSpecialID() int64 {
	u := uuid.New()

	id := int64(binary.BigEndian.Uint64(u[:8]) &^ (1 << 63))
	if id == 0 {
		id = 1
	}

	return id
}

// receiver writes the chunks of one transfer in rank order.
//
// A chunk failing its digest is answered with a retransmission request,
// and every later chunk is dropped until that rank arrives again.
type receiver struct {
	w         io.WriterAt
	algo      digest.Algorithm
	sum       hash.Hash
	blockSize int64

	expected int32
	size     int64
	bytes    int64

	pending    bool
	maxRetries int
	retries    map[int32]int
}

// newReceiver prepares to receive req starting at req.Rank.
// prefix, when the transfer resumes, yields the bytes already written,
// so the file digest still covers the whole file.
func newReceiver(w io.WriterAt, prefix io.Reader, req *localpacket.RequestPacket, algo digest.Algorithm, maxRetries int) (*receiver, error) {
	r := &receiver{
		w:          w,
		algo:       algo,
		sum:        algo.New(),
		blockSize:  int64(req.BlockSize),
		expected:   req.Rank,
		size:       req.OriginalSize,
		bytes:      int64(req.Rank) * int64(req.BlockSize),
		maxRetries: maxRetries,
		retries:    make(map[int32]int),
	}

	if prefix != nil {
		n, err := io.Copy(r.sum, prefix)
		if err != nil {
			return nil, errors.Wrap(err, "digest resumed prefix")
		}
		if n != r.bytes {
			return nil, protocolErrorf(localpacket.CodeTransferError, "resumed prefix holds %d bytes, %d expected", n, r.bytes)
		}
	}

	return r, nil
}

// receive accepts one chunk.
// It returns a packet to send back when the chunk must be retransmitted.
func (r *receiver) receive(p *localpacket.DataPacket) (localpacket.Packet, error) {
	if r.pending && p.Rank > r.expected {
		return nil, nil
	}

	if p.Rank != r.expected {
		return nil, protocolErrorf(localpacket.CodeTransferError, "chunk %d received, %d expected", p.Rank, r.expected)
	}

	if int64(len(p.Data)) > r.blockSize {
		return nil, protocolErrorf(localpacket.CodeTransferError, "chunk %d holds %d bytes, block size is %d", p.Rank, len(p.Data), r.blockSize)
	}

	if !p.IsKeyValid(r.algo) {
		r.retries[p.Rank]++
		if r.retries[p.Rank] > r.maxRetries {
			return nil, protocolErrorf(localpacket.CodeMD5Error, "chunk %d digest mismatch after %d retries", p.Rank, r.maxRetries)
		}

		r.pending = true
		return retryPacket(p.Rank), nil
	}

	off := int64(p.Rank) * r.blockSize
	if _, err := r.w.WriteAt(p.Data, off); err != nil {
		return nil, errors.Wrapf(err, "write chunk %d", p.Rank)
	}

	r.sum.Write(p.Data)
	r.bytes = off + int64(len(p.Data))
	r.expected++
	r.pending = false
	delete(r.retries, p.Rank)

	return nil, nil
}

// finish checks the end of transfer against what was received.
func (r *receiver) finish(p *localpacket.EndTransferPacket) error {
	if p.Optional != "" {
		got := digest.Hex(r.sum.Sum(nil))
		if !strings.EqualFold(got, p.Optional) {
			return protocolErrorf(localpacket.CodeMD5Error, "file digest %s, sender announced %s", got, p.Optional)
		}
	}

	if r.size >= 0 && r.bytes != r.size {
		return protocolErrorf(localpacket.CodeSizeNotAllowed, "received %d bytes, %d declared", r.bytes, r.size)
	}

	return nil
}

// sender reads the chunks of one transfer.
type sender struct {
	r         io.ReaderAt
	size      int64
	algo      digest.Algorithm
	blockSize int64
	withKey   bool

	pool *sync.SlicePool[[]byte, byte]
	sent int64
}

func newSender(r io.ReaderAt, size int64, blockSize int32, algo digest.Algorithm, withKey bool, pool *sync.SlicePool[[]byte, byte]) *sender {
	return &sender{
		r:         r,
		size:      size,
		algo:      algo,
		blockSize: int64(blockSize),
		withKey:   withKey,
		pool:      pool,
	}
}

// chunk reads the chunk at rank, or returns nil past the end of the file.
// The packet must be handed back through release once sent.
func (s *sender) chunk(rank int32) (*localpacket.DataPacket, error) {
	off := int64(rank) * s.blockSize
	if off >= s.size {
		return nil, nil
	}

	n := s.blockSize
	if off+n > s.size {
		n = s.size - off
	}

	buf := s.pool.Get(int(n))
	if m, err := s.r.ReadAt(buf, off); m < len(buf) {
		s.pool.Put(buf)
		if err == nil || err == io.EOF {
			return nil, errors.Errorf("read chunk %d: file shrank to %d bytes", rank, off+int64(m))
		}
		return nil, errors.Wrapf(err, "read chunk %d", rank)
	}

	var key []byte
	if s.withKey {
		key = s.algo.Sum(buf)
	}

	return localpacket.NewDataPacket(rank, buf, key), nil
}

func (s *sender) release(p *localpacket.DataPacket) {
	s.pool.Put(p.Data)
}

// fileDigest returns the hex digest of the whole file.
func (s *sender) fileDigest() (string, error) {
	h := s.algo.New()
	if _, err := io.Copy(h, io.NewSectionReader(s.r, 0, s.size)); err != nil {
		return "", errors.Wrap(err, "file digest")
	}
	return digest.Hex(h.Sum(nil)), nil
}

// stream sends the chunks of snd from rank on, then an EndTransfer ASK.
// A rank received on rewind restarts the stream from there, even after the EndTransfer went out.
// It returns once done is closed.
func stream(ctx context.Context, c *conn, snd *sender, rank int32, rewind <-chan int32, done <-chan struct{}) error {
	var final string
	if snd.withKey {
		var err error
		if final, err = snd.fileDigest(); err != nil {
			return err
		}
	}

	for {
		for {
			select {
			case r := <-rewind:
				c.log.WithField("rank", r).Info("retransmitting")
				rank = r
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			p, err := snd.chunk(rank)
			if err != nil {
				return err
			}
			if p == nil {
				break
			}

			err = c.sendPacket(p)
			snd.sent += int64(p.Length())
			snd.release(p)
			if err != nil {
				return err
			}

			rank++
		}

		if err := c.sendPacket(localpacket.NewEndTransferPacket(localpacket.PacketTypeRequest, final)); err != nil {
			return err
		}

		select {
		case r := <-rewind:
			c.log.WithField("rank", r).Info("retransmitting")
			rank = r
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Transfer describes one transfer asked by a client.
type Transfer struct {
	Rule      string
	Mode      localpacket.TransferMode
	Filename  string
	BlockSize int32
	SpecialID int64
	Info      string
}

func (t Transfer) String() string {
	return fmt.Sprintf("%s %s %s", t.Rule, t.Mode, t.Filename)
}

// TransferResult reports a completed transfer.
type TransferResult struct {
	SpecialID int64
	StartRank int32
	Bytes     int64
	Code      localpacket.ErrorCode
}
