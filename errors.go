package r66

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/pkg/errors"

	"github.com/openr66/r66/encoding/r66/localpacket"
)

// Errors returned by sessions and clients.
var (
	ErrBadAuthent            = errors.New("r66: authentication failed")
	ErrUnknownHost           = errors.New("r66: unknown host")
	ErrServerClosed          = errors.New("r66: server closed")
	ErrSessionClosed         = errors.New("r66: session closed")
	ErrUnknownBusinessAction = errors.New("r66: unknown business action")
)

// ProtocolError is a fatal or recoverable session condition,
// reported to the peer as an ErrorPacket carrying Code.
type ProtocolError struct {
	Code   localpacket.ErrorCode
	Action localpacket.ErrorAction
	Msg    string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("r66: %s: %s", e.Code, e.Msg)
}

// protocolErrorf returns a ProtocolError closing the connection.
func protocolErrorf(code localpacket.ErrorCode, format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{
		Code:   code,
		Action: localpacket.ErrorActionClose,
		Msg:    fmt.Sprintf(format, args...),
	}
}

// AuthError is an authentication failure, reported as a ConnectionErrorPacket.
type AuthError struct {
	Code localpacket.ErrorCode
	Msg  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("r66: %s: %s", e.Code, e.Msg)
}

// Cause lets errors.Cause unwrap an AuthError down to ErrBadAuthent.
func (e *AuthError) Cause() error {
	return ErrBadAuthent
}

// RemoteError is a diagnostic received from the peer.
// It ends the session without any diagnostic being sent back.
type RemoteError struct {
	Code   localpacket.ErrorCode
	Action localpacket.ErrorAction
	Msg    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("r66: remote %s: %s", e.Code, e.Msg)
}

// remoteError converts an inbound diagnostic packet.
func remoteError(p localpacket.Packet) *RemoteError {
	switch p := p.(type) {
	case *localpacket.ErrorPacket:
		return &RemoteError{
			Code:   p.Code(),
			Action: p.Action,
			Msg:    p.Header,
		}
	case *localpacket.ConnectionErrorPacket:
		return &RemoteError{
			Code:   localpacket.ErrorCodeFromString(p.Middle),
			Action: localpacket.ErrorActionClose,
			Msg:    p.Header,
		}
	}
	return nil
}

// codeFor returns the ErrorCode best describing err.
func codeFor(err error) localpacket.ErrorCode {
	var pe *ProtocolError
	var ae *AuthError
	var re *RemoteError

	switch {
	case err == nil:
		return localpacket.CodeCompleteOk
	case errors.As(err, &pe):
		return pe.Code
	case errors.As(err, &ae):
		return ae.Code
	case errors.As(err, &re):
		return re.Code
	}

	switch errors.Cause(err) {
	case localpacket.ErrUnknownPacketType, localpacket.ErrUnimplementedPacketType:
		return localpacket.CodeUnimplemented
	case localpacket.ErrNotEnoughData, localpacket.ErrInvalidFrame, localpacket.ErrFrameTooLarge:
		return localpacket.CodeIncorrectCommand
	case io.EOF, io.ErrUnexpectedEOF, io.ErrClosedPipe, net.ErrClosed:
		return localpacket.CodeDisconnection
	case ErrServerClosed:
		return localpacket.CodeShutdown
	case context.Canceled, context.DeadlineExceeded:
		return localpacket.CodeCanceledTransfer
	}

	if os.IsNotExist(errors.Cause(err)) {
		return localpacket.CodeFileNotFound
	}

	return localpacket.CodeInternal
}

// diagnosticFor returns the one packet reporting err to the peer,
// or nil when nothing must be sent: the peer reported first, or the transport is gone.
func diagnosticFor(err error) localpacket.Packet {
	var pe *ProtocolError
	var ae *AuthError
	var re *RemoteError

	switch {
	case err == nil:
		return nil
	case errors.As(err, &re):
		return nil
	case errors.As(err, &ae):
		return &localpacket.ConnectionErrorPacket{
			Header: ae.Msg,
			Middle: ae.Code.Letter(),
		}
	case errors.As(err, &pe):
		return localpacket.NewErrorPacket(pe.Msg, pe.Code, pe.Action)
	}

	code := codeFor(err)
	if code == localpacket.CodeDisconnection {
		return nil
	}

	return localpacket.NewErrorPacket(err.Error(), code, localpacket.ErrorActionClose)
}
