// Package r66 implements the R66 managed file-transfer protocol,
// both as a server answering partners and as a client requesting transfers.
//
// A connection carries one session: the requester authenticates, may exchange
// side requests, then negotiates one transfer whose file is cut in ranked chunks,
// each optionally protected by a digest. The transfer ends with two handshakes,
// EndTransfer then EndRequest, after which the connection closes.
//
// The wire packets live in package encoding/r66/localpacket.
package r66
