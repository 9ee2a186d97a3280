package notify

import "errors"

var (
	errSenderPanic = errors.New("sender panicked")
	ErrNoRecipient = errors.New("message has no recipient for this channel")
	ErrUnknownKind = errors.New("unknown notification kind")
)
