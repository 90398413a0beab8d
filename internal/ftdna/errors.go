package ftdna

import "errors"

// Download failure modes, distinguished so the CLI can explain what the
// group page actually said.
var (
	ErrGroupNotFound      = errors.New("group not found")
	ErrResultsUnavailable = errors.New("results page unavailable")
	ErrResultsHidden      = errors.New("results page hidden")
	ErrUnknownPageLayout  = errors.New("unknown page layout")
)
