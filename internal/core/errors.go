package core

import "errors"

var (
	// Configuration errors
	ErrConfigInvalid      = errors.New("strix: invalid configuration")
	ErrPacketSizeTooSmall = errors.New("strix: max packet size too small")

	// Encoding errors
	ErrIDOutOfRange    = errors.New("strix: item id does not fit id field")
	ErrValueOutOfRange = errors.New("strix: value does not fit address field")

	// Source errors
	ErrSourceUnknown = errors.New("strix: unknown source type")

	// Transport errors
	ErrTransportUnknown = errors.New("strix: unknown transport type")
	ErrWriterClosed     = errors.New("strix: packet writer is closed")
)
