package repository

import (
	"errors"
)

// ErrNotFound is returned by lookups when no row matches.
// GORM's record-not-found error is translated to this sentinel so callers
// do not need to depend on the ORM.
var ErrNotFound = errors.New("record not found")
