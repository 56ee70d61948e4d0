package sentinel

import "errors"

// ErrNotFound is returned (optionally wrapped) by visitor stores when the
// document does not exist. The verification service translates it into a
// domain error code.
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var ErrNotFound = errors.New("not found")
