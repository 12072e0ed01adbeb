package matching

import "errors"

var ErrNotFound = errors.New("matching not found")
