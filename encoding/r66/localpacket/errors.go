package localpacket

import (
	"github.com/pkg/errors"
)

// Various decoding errors.
// All of them are fatal to the connection; an incomplete frame is not an error.
var (
	ErrNotEnoughData           = errors.New("not enough data")
	ErrUnknownPacketType       = errors.New("unknown packet type")
	ErrUnimplementedPacketType = errors.New("packet type not implemented")
	ErrInvalidFrame            = errors.New("invalid frame lengths")
	ErrFrameTooLarge           = errors.New("frame too large")
)

// malformed wraps ErrNotEnoughData with the packet type and the failing constraint.
func malformed(typ PacketType, format string, args ...interface{}) error {
	return errors.Wrapf(ErrNotEnoughData, typ.String()+": "+format, args...)
}
