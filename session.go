package r66

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/openr66/r66/encoding/r66/localpacket"
	"github.com/openr66/r66/filestore"
	"github.com/openr66/r66/internal/sync"
	"github.com/openr66/r66/monitor"
	"github.com/openr66/r66/resume"
)

// State is the position of a session in the transfer protocol.
type State int32

// Session states.
const (
	StateIdle State = iota
	StateAuthenticating
	StateNegotiating
	StateTransferring
	StateEndingTransfer
	StateEndingRequest
	StateClosed
	StateErroring
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAuthenticating:
		return "Authenticating"
	case StateNegotiating:
		return "Negotiating"
	case StateTransferring:
		return "Transferring"
	case StateEndingTransfer:
		return "EndingTransfer"
	case StateEndingRequest:
		return "EndingRequest"
	case StateClosed:
		return "Closed"
	case StateErroring:
		return "Erroring"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// authenticated reports whether a partner identity is established in s.
func (s State) authenticated() bool {
	return s >= StateAuthenticating && s < StateClosed
}

// Session is the responder side of one connection.
//
// Packets are handled one at a time, in arrival order, on the goroutine running serve.
// Only the chunk stream of a pull transfer runs beside it.
type Session struct {
	ID     uuid.UUID
	srv    *Server
	conn   *conn
	log    *logrus.Entry
	remote string
	ssl    bool

	mu    sync.Mutex // guards state, log, code and err
	state State

	localID int32
	creds   HostCredentials
	partner Partner

	req     *localpacket.RequestPacket
	started time.Time
	recv    *receiver
	snd     *sender
	file    io.Closer

	rewind   chan int32
	done     chan struct{}
	doneOnce sync.Once
	streamWG sync.WaitGroup

	code     localpacket.ErrorCode
	failOnce sync.Once
	err      error
}

func newSession(srv *Server, rwc io.ReadWriteCloser, remote string, ssl bool) *Session {
	id := uuid.New()

	log := srv.log.WithFields(logrus.Fields{
		"session": id.String(),
		"remote":  remote,
	})

	return &Session{
		ID:     id,
		srv:    srv,
		conn:   newConn(rwc, srv.cfg.DecodeOptions(), log),
		log:    log,
		remote: remote,
		ssl:    ssl,
		code:   localpacket.CodeInitOk,
	}
}

// State returns the current state of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != st {
		s.log.WithField("state", st).Debug("transition")
	}
	s.state = st
}

// Err returns the error that ended the session, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateClosed {
		return nil
	}
	return s.err
}

// result returns the final code of the session and the error that ended it.
func (s *Session) result() (localpacket.ErrorCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.code, s.err
}

func (s *Session) setCode(code localpacket.ErrorCode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.code = code
}

// logger returns the session logger for use off the session goroutine.
func (s *Session) logger() *logrus.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.log
}

// setLogger replaces the session logger. It runs on the session goroutine only.
func (s *Session) setLogger(log *logrus.Entry) {
	s.mu.Lock()
	s.log = log
	s.mu.Unlock()

	s.conn.setLogger(log)
}

func (s *Session) send(p localpacket.Packet) error {
	return s.conn.sendPacket(p)
}

// serve runs the session until it is closed.
func (s *Session) serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.cleanup()

	for {
		p, err := s.conn.recvPacket()
		if err != nil {
			switch st := s.State(); {
			case st == StateClosed:
				_, err := s.result()
				return err
			case errors.Cause(err) == io.EOF && (st == StateIdle || st == StateAuthenticating):
				// the peer left between transfers.
				s.setState(StateClosed)
				return nil
			}
			return s.fail(errors.Wrap(err, "recv"))
		}

		if err := s.handle(ctx, p); err != nil {
			return s.fail(err)
		}

		if s.State() == StateClosed {
			return nil
		}
	}
}

// fail ends the session on err, sending at most one diagnostic to the peer.
// It is safe to call from the stream goroutine.
func (s *Session) fail(err error) error {
	s.failOnce.Do(func() {
		s.mu.Lock()
		if s.state == StateClosed {
			s.mu.Unlock()
			s.conn.Close()
			return
		}
		s.err = err
		s.code = codeFor(err)
		s.mu.Unlock()

		s.setState(StateErroring)

		if p := diagnosticFor(err); p != nil {
			if serr := s.send(p); serr != nil {
				s.logger().WithError(serr).Debug("diagnostic not delivered")
			}
		}

		s.conn.Close()
		s.setState(StateClosed)

		entry := s.logger().WithError(err).WithField("code", codeFor(err))
		if _, ok := errors.Cause(err).(*RemoteError); ok {
			entry.Info("closed by peer")
		} else {
			entry.Warn("session failed")
		}
	})

	_, ferr := s.result()
	return ferr
}

func (s *Session) cleanup() {
	s.stopStream()

	if err := s.closeFile(); err != nil {
		s.log.WithError(err).Error("close file")
	}

	s.conn.Close()
	s.setState(StateClosed)

	s.publish()
}

func (s *Session) closeFile() error {
	if s.file == nil {
		return nil
	}

	err := s.file.Close()
	s.file = nil
	return err
}

func (s *Session) publish() {
	if s.req == nil {
		return
	}

	code, err := s.result()

	ev := monitor.Event{
		SpecialID: s.req.SpecialID,
		Host:      s.creds.HostID,
		Rule:      s.req.Rule,
		Mode:      s.req.Mode,
		Filename:  s.req.Filename,
		Code:      code,
		Start:     s.started,
		Duration:  time.Since(s.started),
	}

	switch {
	case s.recv != nil:
		ev.Bytes = s.recv.bytes
	case s.snd != nil:
		ev.Bytes = s.snd.sent
	}

	if err != nil {
		ev.Err = err.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.srv.monitor.Publish(ctx, ev); err != nil {
		s.log.WithError(err).Error("publish transfer event")
	}
}

// expect fails unless the session is in one of states.
func (s *Session) expect(p localpacket.Packet, states ...State) error {
	st := s.State()
	for _, want := range states {
		if st == want {
			return nil
		}
	}

	if st == StateIdle {
		return &AuthError{
			Code: localpacket.CodeBadAuthent,
			Msg:  fmt.Sprintf("%s before authentication", p.Type()),
		}
	}

	return protocolErrorf(localpacket.CodeIncorrectCommand, "unexpected %s in state %s", p.Type(), st)
}

func (s *Session) expectAuthenticated(p localpacket.Packet) error {
	if st := s.State(); !st.authenticated() {
		return s.expect(p)
	}
	return nil
}

func (s *Session) handle(ctx context.Context, p localpacket.Packet) error {
	switch p := p.(type) {
	case *localpacket.ErrorPacket:
		return s.handleError(p)

	case *localpacket.ConnectionErrorPacket:
		return remoteError(p)

	case *localpacket.KeepAlivePacket:
		if p.IsToValidate() {
			return s.send(p.Validate())
		}
		return nil

	case *localpacket.NoOpPacket:
		return nil

	case *localpacket.TestPacket:
		return s.send(p.Reply())

	case *localpacket.StartupPacket:
		if err := s.expect(p, StateIdle); err != nil {
			return err
		}
		s.localID = p.LocalID
		return nil

	case *localpacket.AuthentPacket:
		return s.handleAuthent(p)

	case *localpacket.RequestPacket:
		return s.handleRequest(ctx, p)

	case *localpacket.DataPacket:
		return s.handleData(ctx, p)

	case *localpacket.EndTransferPacket:
		return s.handleEndTransfer(p)

	case *localpacket.EndRequestPacket:
		return s.handleEndRequest(ctx, p)

	case *localpacket.BusinessRequestPacket:
		return s.handleBusiness(ctx, p)

	case *localpacket.InformationPacket:
		return s.handleInformation(p)

	case *localpacket.ShutdownPacket:
		return s.handleShutdown(p)

	case *localpacket.BlockRequestPacket:
		return s.handleBlock(p)

	case *localpacket.JSONCommandPacket:
		return s.handleJSONCommand(p)
	}

	return s.expect(p)
}

func (s *Session) handleError(p *localpacket.ErrorPacket) error {
	if rank, ok := parseRetry(p); ok && s.snd != nil && s.State() == StateTransferring {
		s.rewindTo(rank)
		return nil
	}

	if !p.Action.Closes() {
		s.log.WithFields(logrus.Fields{
			"code":   p.Code(),
			"action": p.Action,
		}).Warn("remote error: ", p.Header)
		return nil
	}

	return remoteError(p)
}

func (s *Session) handleAuthent(p *localpacket.AuthentPacket) error {
	if err := s.expect(p, StateIdle); err != nil {
		return err
	}

	if p.IsAnswer() {
		return protocolErrorf(localpacket.CodeIncorrectCommand, "unexpected authentication answer")
	}

	cfg := s.srv.cfg

	creds, err := authenticate(s.srv.auth, cfg.localHostID(s.ssl), p, s.ssl)
	if err != nil {
		return err
	}

	s.creds = creds
	s.partner = s.srv.partners.Register(p.HostID, p.Version)

	s.setLogger(s.log.WithField("host", p.HostID))

	s.setState(StateAuthenticating)
	s.log.WithField("version", p.Version).Info("authenticated")

	return s.send(p.Validate(cfg.localHostID(s.ssl), cfg.Key(s.ssl), cfg.Version))
}

func (s *Session) resumeKey(id int64) resume.Key {
	return resume.Key{
		Host:      s.creds.HostID,
		SpecialID: id,
	}
}

func (s *Session) handleRequest(ctx context.Context, p *localpacket.RequestPacket) error {
	if err := s.expect(p, StateAuthenticating); err != nil {
		return err
	}

	if !p.IsToValidate() {
		return protocolErrorf(localpacket.CodeIncorrectCommand, "unexpected request answer")
	}

	if s.srv.Blocked() {
		return protocolErrorf(localpacket.CodeServerOverloaded, "server does not accept new transfers")
	}

	if err := s.srv.checkRule(p); err != nil {
		return err
	}

	if limit := s.srv.cfg.MaxFrameSize - 64; int(p.BlockSize) > limit {
		return protocolErrorf(localpacket.CodeIncorrectCommand, "block size %d exceeds %d", p.BlockSize, limit)
	}

	s.setState(StateNegotiating)

	s.req = p
	s.started = time.Now()

	id := p.SpecialID
	if id == 0 {
		id = newSpecialID()
	}
	s.req = p.WithSpecialID(id)

	s.setLogger(s.log.WithFields(logrus.Fields{
		"special_id": id,
		"rule":       p.Rule,
	}))

	var rank int32
	if p.IsRetrieve() {
		rank = p.Rank
	} else if p.SpecialID != 0 {
		r, ok, err := s.srv.resume.Load(ctx, s.resumeKey(id))
		if err != nil {
			s.log.WithError(err).Warn("resume store unavailable, restarting transfer")
		} else if ok {
			rank = r
		}
	}
	if rank < 0 {
		return protocolErrorf(localpacket.CodeTransferError, "negative rank %d", rank)
	}

	if rank > 0 && !p.IsRetrieve() && !s.partialHolds(p.Filename, int64(rank)*int64(p.BlockSize)) {
		s.log.WithField("rank", rank).Warn("partial file lost, restarting transfer")
		if err := s.srv.resume.Delete(ctx, s.resumeKey(id)); err != nil {
			s.log.WithError(err).Warn("clear resume rank")
		}
		rank = 0
	}

	answer := s.req.Validate().WithRank(rank)

	if p.IsRetrieve() {
		if err := s.openSource(answer); err != nil {
			return err
		}
		answer.OriginalSize = s.snd.size
	} else {
		if err := s.openTarget(answer); err != nil {
			return err
		}
	}

	if rank > 0 {
		s.log.WithField("rank", rank).Info("resuming transfer")
	}

	if err := s.send(answer); err != nil {
		return err
	}

	s.setState(StateTransferring)

	if s.snd != nil {
		s.startStream(ctx, rank)
	}

	return nil
}

// partialHolds reports whether the partial file name holds the offset bytes a resumed push skips.
func (s *Session) partialHolds(name string, offset int64) bool {
	e, err := s.srv.store.Stat(name)
	return err == nil && !e.IsDir && e.Size >= offset
}

// storeError reports a failing file store operation.
func storeError(err error, name string) error {
	cause := errors.Cause(err)

	switch {
	case cause == filestore.ErrOutsideRoot:
		return protocolErrorf(localpacket.CodeFileNotAllowed, "%s: %v", name, err)
	case cause == filestore.ErrShortFile:
		return protocolErrorf(localpacket.CodeTransferError, "%s: %v", name, err)
	case codeFor(err) == localpacket.CodeFileNotFound:
		return protocolErrorf(localpacket.CodeFileNotFound, "%s: %v", name, err)
	}

	return errors.Wrapf(err, "file %s", name)
}

func (s *Session) openSource(req *localpacket.RequestPacket) error {
	r, size, err := s.srv.store.Open(req.Filename)
	if err != nil {
		return storeError(err, req.Filename)
	}

	if c, ok := r.(io.Closer); ok {
		s.file = c
	}

	if off := int64(req.Rank) * int64(req.BlockSize); off > size {
		return protocolErrorf(localpacket.CodeTransferError, "rank %d is past the end of %s", req.Rank, req.Filename)
	}

	s.snd = newSender(r, size, req.BlockSize, s.srv.cfg.DigestAlgorithm(), req.Mode.IsMD5(), s.srv.chunks)
	return nil
}

func (s *Session) openTarget(req *localpacket.RequestPacket) error {
	offset := int64(req.Rank) * int64(req.BlockSize)

	w, err := s.srv.store.Create(req.Filename, offset)
	if err != nil {
		return storeError(err, req.Filename)
	}

	if c, ok := w.(io.Closer); ok {
		s.file = c
	}

	var prefix io.Reader
	if offset > 0 {
		r, _, err := s.srv.store.Open(req.Filename)
		if err != nil {
			return storeError(err, req.Filename)
		}
		if c, ok := r.(io.Closer); ok {
			defer c.Close()
		}
		prefix = io.NewSectionReader(r, 0, offset)
	}

	recv, err := newReceiver(w, prefix, req, s.srv.cfg.DigestAlgorithm(), s.srv.cfg.MaxDigestRetries)
	if err != nil {
		return err
	}

	s.recv = recv
	return nil
}

func (s *Session) startStream(ctx context.Context, rank int32) {
	s.rewind = make(chan int32, 1)
	s.done = make(chan struct{})

	s.streamWG.Add(1)
	go func() {
		defer s.streamWG.Done()

		if err := stream(ctx, s.conn, s.snd, rank, s.rewind, s.done); err != nil {
			s.fail(err)
		}
	}()
}

func (s *Session) rewindTo(rank int32) {
	select {
	case <-s.rewind:
	default:
	}

	select {
	case s.rewind <- rank:
	case <-s.done:
	}
}

func (s *Session) stopStream() {
	if s.done == nil {
		return
	}

	s.doneOnce.Do(func() {
		close(s.done)
	})
	s.streamWG.Wait()
}

func (s *Session) handleData(ctx context.Context, p *localpacket.DataPacket) error {
	if err := s.expect(p, StateTransferring); err != nil {
		return err
	}

	if s.recv == nil {
		return protocolErrorf(localpacket.CodeIncorrectCommand, "data received on a pull transfer")
	}

	before := s.recv.expected

	reply, err := s.recv.receive(p)
	if err != nil {
		return err
	}

	if reply != nil {
		s.log.WithField("rank", p.Rank).Warn("chunk digest mismatch, asking retransmission")
		return s.send(reply)
	}

	if s.recv.expected != before {
		if err := s.srv.resume.Save(ctx, s.resumeKey(s.req.SpecialID), s.recv.expected); err != nil {
			s.log.WithError(err).Warn("save resume rank")
		}
	}

	return nil
}

func (s *Session) handleEndTransfer(p *localpacket.EndTransferPacket) error {
	if err := s.expect(p, StateTransferring); err != nil {
		return err
	}

	if p.IsToValidate() {
		if s.recv == nil {
			return protocolErrorf(localpacket.CodeIncorrectCommand, "end of transfer asked on a pull transfer")
		}

		if s.recv.pending {
			s.log.Debug("end of transfer dropped, retransmission pending")
			return nil
		}

		if err := s.recv.finish(p); err != nil {
			return err
		}

		if err := s.closeFile(); err != nil {
			return errors.Wrap(err, "close file")
		}

		s.setState(StateEndingTransfer)
		return s.send(p.Validate())
	}

	if s.snd == nil {
		return protocolErrorf(localpacket.CodeIncorrectCommand, "unexpected end of transfer answer")
	}

	s.stopStream()

	if err := s.closeFile(); err != nil {
		return errors.Wrap(err, "close file")
	}

	s.setState(StateEndingTransfer)
	return nil
}

func (s *Session) handleEndRequest(ctx context.Context, p *localpacket.EndRequestPacket) error {
	if err := s.expect(p, StateEndingTransfer); err != nil {
		return err
	}

	if !p.IsToValidate() {
		return protocolErrorf(localpacket.CodeIncorrectCommand, "unexpected end of request answer")
	}

	s.setState(StateEndingRequest)

	code := localpacket.CodeCompleteOk
	if c := localpacket.ErrorCodeFromString(p.Code.Letter()); c.IsError() {
		code = c
	}
	s.setCode(code)

	if err := s.srv.resume.Delete(ctx, s.resumeKey(s.req.SpecialID)); err != nil {
		s.log.WithError(err).Warn("clear resume rank")
	}

	if err := s.send(p.Validate()); err != nil {
		return err
	}

	s.setState(StateClosed)
	s.log.WithField("code", code).Info("transfer ended")

	return nil
}

func (s *Session) handleBusiness(ctx context.Context, p *localpacket.BusinessRequestPacket) error {
	if err := s.expectAuthenticated(p); err != nil {
		return err
	}

	if !p.IsToValidate() {
		s.log.WithField("way", p.Way).Debug("business answer ignored")
		return nil
	}

	if p.Delay > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(p.Delay)*time.Millisecond)
		defer cancel()
	}

	result, err := s.srv.business.Execute(ctx, s.creds.HostID, p.Action)
	if err != nil {
		s.log.WithError(err).WithField("action", p.Action).Warn("business action failed")
		return s.send(p.Invalidate(err.Error()))
	}

	return s.send(p.Validate(result))
}

func (s *Session) handleInformation(p *localpacket.InformationPacket) error {
	if err := s.expect(p, StateAuthenticating); err != nil {
		return err
	}

	var header, middle string

	switch p.Request {
	case localpacket.AskExist:
		_, err := s.srv.store.Stat(p.Filename)
		header = strconv.FormatBool(err == nil)

	case localpacket.AskMLSDetail:
		e, err := s.srv.store.Stat(p.Filename)
		if err != nil {
			return s.send(localpacket.NewErrorPacket(p.Filename+": no such file", localpacket.CodeFileNotFound, localpacket.ErrorActionIgnore))
		}
		header, middle = e.MLS(), "1"

	case localpacket.AskList, localpacket.AskMLSList:
		entries, err := s.srv.store.List(p.Filename)
		if err != nil {
			return s.send(localpacket.NewErrorPacket(err.Error(), localpacket.CodeIncorrectCommand, localpacket.ErrorActionIgnore))
		}

		lines := make([]string, len(entries))
		for i, e := range entries {
			if p.Request == localpacket.AskMLSList {
				lines[i] = e.MLS()
			} else {
				lines[i] = e.Path
			}
		}
		header, middle = strings.Join(lines, "\n"), strconv.Itoa(len(entries))
	}

	return s.send(localpacket.NewValidPacket(header, middle, localpacket.PacketTypeInformation))
}

// checkAdmin verifies the key of an administrative packet.
func (s *Session) checkAdmin(p localpacket.Packet, key []byte) error {
	cfg := s.srv.cfg

	if !s.creds.Admin || !keysEqual(AdminKey(cfg.localHostID(s.ssl), cfg.AdminPassword), key) {
		return protocolErrorf(localpacket.CodeBadAuthent, "%s refused for host %s", p.Type(), s.creds.HostID)
	}

	return nil
}

func (s *Session) handleShutdown(p *localpacket.ShutdownPacket) error {
	if err := s.expectAuthenticated(p); err != nil {
		return err
	}

	if !s.srv.cfg.AllowRemoteShutdown || s.srv.cfg.AdminPassword == "" {
		return s.send(localpacket.NewErrorPacket("remote shutdown is disabled", localpacket.CodeUnimplemented, localpacket.ErrorActionIgnore))
	}

	if err := s.checkAdmin(p, p.Key); err != nil {
		return err
	}

	s.log.WithField("restart", p.Restart).Warn("remote shutdown")

	if err := s.send(localpacket.NewValidPacket("shutdown", "", localpacket.PacketTypeShutdown)); err != nil {
		return err
	}

	s.setState(StateClosed)
	go s.srv.shutdown(p.Restart)

	return nil
}

func (s *Session) handleBlock(p *localpacket.BlockRequestPacket) error {
	if err := s.expectAuthenticated(p); err != nil {
		return err
	}

	if s.srv.cfg.AdminPassword == "" {
		return s.send(localpacket.NewErrorPacket("administration is disabled", localpacket.CodeUnimplemented, localpacket.ErrorActionIgnore))
	}

	if err := s.checkAdmin(p, p.Key); err != nil {
		return err
	}

	s.srv.blocked.Store(p.Block)

	header := "unblocked"
	if p.Block {
		header = "blocked"
	}
	s.log.Warn("server ", header)

	return s.send(localpacket.NewValidPacket(header, "", localpacket.PacketTypeBlockRequest))
}

// jsonCommand is the request carried by a JSONCommand packet.
type jsonCommand struct {
	Command string `json:"command"`
	Host    string `json:"host,omitempty"`
}

type statusResult struct {
	HostID   string `json:"host_id"`
	Version  string `json:"version"`
	Blocked  bool   `json:"blocked"`
	Sessions int    `json:"sessions"`
	Partners int    `json:"partners"`
}

type partnerResult struct {
	HostID  string `json:"host_id"`
	Version string `json:"version"`
	JSON    bool   `json:"json"`
}

func (s *Session) handleJSONCommand(p *localpacket.JSONCommandPacket) error {
	if err := s.expectAuthenticated(p); err != nil {
		return err
	}

	var cmd jsonCommand
	if err := p.UnmarshalRequest(&cmd); err != nil {
		return s.send(localpacket.NewErrorPacket(err.Error(), localpacket.CodeIncorrectCommand, localpacket.ErrorActionIgnore))
	}

	var result interface{}

	switch cmd.Command {
	case "status":
		result = statusResult{
			HostID:   s.srv.cfg.localHostID(s.ssl),
			Version:  s.srv.cfg.Version,
			Blocked:  s.srv.Blocked(),
			Sessions: s.srv.Sessions(),
			Partners: s.srv.partners.Len(),
		}

	case "partner":
		partner, ok := s.srv.partners.Lookup(cmd.Host)
		if !ok {
			return s.send(localpacket.NewErrorPacket("unknown partner "+cmd.Host, localpacket.CodeNotKnownHost, localpacket.ErrorActionIgnore))
		}
		result = partnerResult{
			HostID:  partner.HostID,
			Version: partner.Version,
			JSON:    partner.UseJSON,
		}

	default:
		return s.send(localpacket.NewErrorPacket("unknown command "+strconv.Quote(cmd.Command), localpacket.CodeCommandNotFound, localpacket.ErrorActionIgnore))
	}

	b, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, "marshal command result")
	}

	return s.send(&localpacket.JSONCommandPacket{
		Request: p.Request,
		Result:  string(b),
		Send:    localpacket.PacketTypeValid,
	})
}
