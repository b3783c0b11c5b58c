package mount

import "errors"

var (
	// ErrNotConnected is returned by any operation attempted before Connect
	// succeeds (or after Disconnect).
	ErrNotConnected = errors.New("mount: not connected")

	// ErrReadTimeout is returned when the mount sends nothing before the
	// read timeout elapses on an exchange that requires a reply.
	ErrReadTimeout = errors.New("mount: read timeout")

	// ErrRejected is returned when the mount answers a setter with the
	// refusal ack ("0").
	ErrRejected = errors.New("mount: command rejected")
)
