package chrome

import "errors"

// Browser errors, wrapped into exporterr values at the package boundary
var (
	ErrNoBrowser        = errors.New("browser could not be started")
	ErrNavigateFailed   = errors.New("navigation failed")
	ErrWaitTimeout      = errors.New("wait timeout exceeded")
	ErrExtractHTML      = errors.New("HTML extraction failed")
	ErrResponseTooLarge = errors.New("response exceeds maximum size limit")
	ErrPrintFailed      = errors.New("PDF printing failed")
	ErrUnknownPaper     = errors.New("unknown paper format")
)
