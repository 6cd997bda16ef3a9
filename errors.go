package main

import (
	"github.com/pkg/errors"
)

// protocolError is raised for commands that don't conform to the protocol.
// Reply holds the exact line emitted to the client; the connection stays open.
type protocolError struct {
	Reply string
}

func (e *protocolError) Error() string {
	return "protocol error: " + escapeCRLF([]byte(e.Reply))
}

var (
	errUnknownCommand     = &protocolError{Reply: "ERROR\r\n"}
	errNotEnoughArguments = &protocolError{Reply: "CLIENT_ERROR not enough arguments\r\n"}
	errBadArgument        = &protocolError{Reply: "CLIENT_ERROR bad argument\r\n"}
	errBadFlags           = &protocolError{Reply: "CLIENT_ERROR bad flags\r\n"}
	errInvalidStatistic   = &protocolError{Reply: "CLIENT_ERROR invalid statistic requested\r\n"}
	errMalformedRequest   = &protocolError{Reply: "CLIENT_ERROR malformed request\r\n"}
)

var (
	// errQuit signals that the client issued "quit"; the connection is
	// closed without a reply.
	errQuit = errors.New("quit command received")
	// errBadDispatch means a command parsed fine but has no executor
	// handler. It never reaches the wire.
	errBadDispatch = errors.New("command missing from dispatch table")
)
