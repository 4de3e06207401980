package localpacket

import (
	"fmt"
)

// TransferMode is the negotiated direction and integrity mode of a transfer.
// The ordinal values are part of the wire format.
type TransferMode int32

// Transfer modes.
const (
	ModeUnknown = TransferMode(iota)
	ModeSend
	ModeRecv
	ModeSendMD5
	ModeRecvMD5
	ModeSendThrough
	ModeRecvThrough
	ModeSendMD5Through
	ModeRecvMD5Through
)

// Valid reports whether m is one of the nine defined modes.
func (m TransferMode) Valid() bool {
	return m >= ModeUnknown && m <= ModeRecvMD5Through
}

// IsRecv reports whether m is a receive (pull) mode from the requester's point of view.
func (m TransferMode) IsRecv() bool {
	switch m {
	case ModeRecv, ModeRecvMD5, ModeRecvThrough, ModeRecvMD5Through:
		return true
	default:
		return false
	}
}

// IsSend reports whether m is not a receive mode.
func (m TransferMode) IsSend() bool {
	return !m.IsRecv()
}

// WithMD5 returns the MD5 counterpart of m, or m itself when it already is one.
func (m TransferMode) WithMD5() TransferMode {
	switch m {
	case ModeSend, ModeRecv, ModeSendThrough, ModeRecvThrough:
		return m + 2
	default:
		return m
	}
}

// IsMD5 reports whether chunks and files carry a digest in mode m.
func (m TransferMode) IsMD5() bool {
	switch m {
	case ModeSendMD5, ModeRecvMD5, ModeSendMD5Through, ModeRecvMD5Through:
		return true
	default:
		return false
	}
}

// IsSendThrough reports whether m is SEND_THROUGH or SEND_MD5_THROUGH.
func (m TransferMode) IsSendThrough() bool {
	return m == ModeSendThrough || m == ModeSendMD5Through
}

// IsRecvThrough reports whether m is RECV_THROUGH or RECV_MD5_THROUGH.
func (m TransferMode) IsRecvThrough() bool {
	return m == ModeRecvThrough || m == ModeRecvMD5Through
}

// IsThrough reports whether data is piped without local storage in mode m.
func (m TransferMode) IsThrough() bool {
	return m >= ModeSendThrough && m <= ModeRecvMD5Through
}

// SendThrough resolves whether the local side sends in through mode.
// The requested side sees the requester's receive as its own send.
func (m TransferMode) SendThrough(isRequested bool) bool {
	if isRequested {
		return m.IsRecvThrough()
	}
	return m.IsSendThrough()
}

// RecvThrough resolves whether the local side receives in through mode.
func (m TransferMode) RecvThrough(isRequested bool) bool {
	if isRequested {
		return m.IsSendThrough()
	}
	return m.IsRecvThrough()
}

// Compatible reports whether a requester in mode m and a responder in mode other agree on direction.
func (m TransferMode) Compatible(other TransferMode) bool {
	return m.IsRecv() == other.IsRecv()
}

func (m TransferMode) String() string {
	switch m {
	case ModeUnknown:
		return "UNKNOWNMODE"
	case ModeSend:
		return "SENDMODE"
	case ModeRecv:
		return "RECVMODE"
	case ModeSendMD5:
		return "SENDMD5MODE"
	case ModeRecvMD5:
		return "RECVMD5MODE"
	case ModeSendThrough:
		return "SENDTHROUGHMODE"
	case ModeRecvThrough:
		return "RECVTHROUGHMODE"
	case ModeSendMD5Through:
		return "SENDMD5THROUGHMODE"
	case ModeRecvMD5Through:
		return "RECVMD5THROUGHMODE"
	default:
		return fmt.Sprintf("MODE(%d)", int32(m))
	}
}
