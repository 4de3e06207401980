package localpacket

import (
	"fmt"
)

// ErrorCode is the one-letter status of a transfer, as carried in requests,
// end-of-request packets and error diagnostics.
type ErrorCode byte

// Transfer status codes.
const (
	CodeInitOk                = ErrorCode('i')
	CodePreProcessingOk       = ErrorCode('B')
	CodeTransferOk            = ErrorCode('X')
	CodePostProcessingOk      = ErrorCode('P')
	CodeCompleteOk            = ErrorCode('O')
	CodeConnectionImpossible  = ErrorCode('C')
	CodeServerOverloaded      = ErrorCode('l')
	CodeBadAuthent            = ErrorCode('A')
	CodeExternalOp            = ErrorCode('E')
	CodeTransferError         = ErrorCode('T')
	CodeMD5Error              = ErrorCode('M')
	CodeDisconnection         = ErrorCode('D')
	CodeRemoteShutdown        = ErrorCode('r')
	CodeFinalOp               = ErrorCode('F')
	CodeUnimplemented         = ErrorCode('U')
	CodeShutdown              = ErrorCode('S')
	CodeRemoteError           = ErrorCode('R')
	CodeInternal              = ErrorCode('I')
	CodeStoppedTransfer       = ErrorCode('H')
	CodeCanceledTransfer      = ErrorCode('K')
	CodeWarning               = ErrorCode('W')
	CodeUnknown               = ErrorCode('-')
	CodeQueryAlreadyFinished  = ErrorCode('Q')
	CodeQueryStillRunning     = ErrorCode('s')
	CodeNotKnownHost          = ErrorCode('N')
	CodeLoopSelfRequestedHost = ErrorCode('L')
	CodeQueryRemotelyUnknown  = ErrorCode('u')
	CodeFileNotFound          = ErrorCode('f')
	CodeCommandNotFound       = ErrorCode('c')
	CodePassThroughMode       = ErrorCode('p')
	CodeRunning               = ErrorCode('z')
	CodeIncorrectCommand      = ErrorCode('n')
	CodeFileNotAllowed        = ErrorCode('a')
	CodeSizeNotAllowed        = ErrorCode('d')
)

var errorCodeNames = map[ErrorCode]string{
	CodeInitOk:                "InitOk",
	CodePreProcessingOk:       "PreProcessingOk",
	CodeTransferOk:            "TransferOk",
	CodePostProcessingOk:      "PostProcessingOk",
	CodeCompleteOk:            "CompleteOk",
	CodeConnectionImpossible:  "ConnectionImpossible",
	CodeServerOverloaded:      "ServerOverloaded",
	CodeBadAuthent:            "BadAuthent",
	CodeExternalOp:            "ExternalOp",
	CodeTransferError:         "TransferError",
	CodeMD5Error:              "MD5Error",
	CodeDisconnection:         "Disconnection",
	CodeRemoteShutdown:        "RemoteShutdown",
	CodeFinalOp:               "FinalOp",
	CodeUnimplemented:         "Unimplemented",
	CodeShutdown:              "Shutdown",
	CodeRemoteError:           "RemoteError",
	CodeInternal:              "Internal",
	CodeStoppedTransfer:       "StoppedTransfer",
	CodeCanceledTransfer:      "CanceledTransfer",
	CodeWarning:               "Warning",
	CodeUnknown:               "Unknown",
	CodeQueryAlreadyFinished:  "QueryAlreadyFinished",
	CodeQueryStillRunning:     "QueryStillRunning",
	CodeNotKnownHost:          "NotKnownHost",
	CodeLoopSelfRequestedHost: "LoopSelfRequestedHost",
	CodeQueryRemotelyUnknown:  "QueryRemotelyUnknown",
	CodeFileNotFound:          "FileNotFound",
	CodeCommandNotFound:       "CommandNotFound",
	CodePassThroughMode:       "PassThroughMode",
	CodeRunning:               "Running",
	CodeIncorrectCommand:      "IncorrectCommand",
	CodeFileNotAllowed:        "FileNotAllowed",
	CodeSizeNotAllowed:        "SizeNotAllowed",
}

// ErrorCodeFromString parses the first letter of s, or a code name such as "MD5Error".
// Anything unrecognized maps to CodeUnknown.
func ErrorCodeFromString(s string) ErrorCode {
	if s == "" {
		return CodeUnknown
	}

	if len(s) > 1 {
		for c, name := range errorCodeNames {
			if name == s {
				return c
			}
		}
	}

	if c := ErrorCode(s[0]); errorCodeNames[c] != "" {
		return c
	}

	return CodeUnknown
}

// IsError reports whether c denotes a failed transfer.
func (c ErrorCode) IsError() bool {
	switch c {
	case CodeCompleteOk, CodeInitOk, CodePostProcessingOk, CodePreProcessingOk,
		CodeRunning, CodeTransferOk, CodeUnknown, CodeWarning:
		return false
	default:
		return true
	}
}

// Letter returns the wire representation of c.
func (c ErrorCode) Letter() string {
	return string([]byte{byte(c)})
}

func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(%q)", rune(c))
}
