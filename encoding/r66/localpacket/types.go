package localpacket

import (
	"fmt"
)

// PacketType defines the various R66 local packet types.
// The values are part of the wire format.
type PacketType uint8

// Packet types.
const (
	PacketTypeAuthent = PacketType(iota + 1)
	PacketTypeStartup
	PacketTypeData
	PacketTypeValid
	PacketTypeError
	PacketTypeConnectionError
	PacketTypeRequest
	PacketTypeShutdown

	// Reserved, not implemented by this engine.
	PacketTypeStop
	PacketTypeCancel
	PacketTypeConfExport
	PacketTypeConfImport

	PacketTypeTest
	PacketTypeEndTransfer

	// Reserved, not implemented by this engine.
	PacketTypeRequestUser
	PacketTypeLog
	PacketTypeLogPurge

	PacketTypeInformation

	// Reserved, not implemented by this engine.
	PacketTypeBandwidth

	PacketTypeEndRequest
	PacketTypeKeepAlive
	PacketTypeBusinessRequest
	PacketTypeNoOp
	PacketTypeBlockRequest
	PacketTypeJSONRequest
)

// Reserved reports whether the type byte belongs to the catalog but has no implementation.
func (f PacketType) Reserved() bool {
	switch f {
	case PacketTypeStop, PacketTypeCancel, PacketTypeConfExport, PacketTypeConfImport,
		PacketTypeRequestUser, PacketTypeLog, PacketTypeLogPurge, PacketTypeBandwidth:
		return true
	default:
		return false
	}
}

func (f PacketType) String() string {
	switch f {
	case PacketTypeAuthent:
		return "AUTHENT"
	case PacketTypeStartup:
		return "STARTUP"
	case PacketTypeData:
		return "DATA"
	case PacketTypeValid:
		return "VALID"
	case PacketTypeError:
		return "ERROR"
	case PacketTypeConnectionError:
		return "CONNECT_ERROR"
	case PacketTypeRequest:
		return "REQUEST"
	case PacketTypeShutdown:
		return "SHUTDOWN"
	case PacketTypeStop:
		return "STOP"
	case PacketTypeCancel:
		return "CANCEL"
	case PacketTypeConfExport:
		return "CONF_EXPORT"
	case PacketTypeConfImport:
		return "CONF_IMPORT"
	case PacketTypeTest:
		return "TEST"
	case PacketTypeEndTransfer:
		return "END_TRANSFER"
	case PacketTypeRequestUser:
		return "REQUEST_USER"
	case PacketTypeLog:
		return "LOG"
	case PacketTypeLogPurge:
		return "LOG_PURGE"
	case PacketTypeInformation:
		return "INFORMATION"
	case PacketTypeBandwidth:
		return "BANDWIDTH"
	case PacketTypeEndRequest:
		return "END_REQUEST"
	case PacketTypeKeepAlive:
		return "KEEPALIVE"
	case PacketTypeBusinessRequest:
		return "BUSINESS_REQUEST"
	case PacketTypeNoOp:
		return "NOOP"
	case PacketTypeBlockRequest:
		return "BLOCK_REQUEST"
	case PacketTypeJSONRequest:
		return "JSON_REQUEST"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", f)
	}
}

// Way distinguishes a request from its acknowledgment in the two-phase packets.
type Way uint8

// Way values.
const (
	WayAsk        = Way(0)
	WayAnswer     = Way(1)
	WayInvalidate = Way(2)
)

func (w Way) String() string {
	switch w {
	case WayAsk:
		return "ASK"
	case WayAnswer:
		return "ANSWER"
	case WayInvalidate:
		return "INVALIDATE"
	default:
		return fmt.Sprintf("WAY(%d)", w)
	}
}

// consumeWay consumes a way byte, accepting only ASK and ANSWER,
// or also INVALIDATE when allowInvalidate is set.
func consumeWay(buf *Buffer, allowInvalidate bool) Way {
	w := Way(buf.ConsumeUint8())
	if buf.Err != nil {
		return 0
	}

	switch w {
	case WayAsk, WayAnswer:
	case WayInvalidate:
		if !allowInvalidate {
			buf.Err = ErrNotEnoughData
		}
	default:
		buf.Err = ErrNotEnoughData
	}

	return w
}

// ErrorAction is the numeric code of an ErrorPacket,
// telling the receiving side what to do with the connection.
type ErrorAction int32

// Error actions.
const (
	ErrorActionIgnore = ErrorAction(iota)
	ErrorActionClose
	ErrorActionForward
	ErrorActionForwardClose
)

// Valid reports whether a is one of the defined actions.
func (a ErrorAction) Valid() bool {
	return a >= ErrorActionIgnore && a <= ErrorActionForwardClose
}

// Closes reports whether the action terminates the connection.
func (a ErrorAction) Closes() bool {
	return a == ErrorActionClose || a == ErrorActionForwardClose
}

func (a ErrorAction) String() string {
	switch a {
	case ErrorActionIgnore:
		return "IGNORE"
	case ErrorActionClose:
		return "CLOSE"
	case ErrorActionForward:
		return "FORWARD"
	case ErrorActionForwardClose:
		return "FORWARD_CLOSE"
	default:
		return fmt.Sprintf("ACTION(%d)", int32(a))
	}
}
