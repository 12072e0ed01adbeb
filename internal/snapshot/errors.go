package snapshot

import "errors"

var (
	ErrWebsiteNotFound = errors.New("website not found")
	ErrMissingVersion  = errors.New("snapshot references a missing version")
)
