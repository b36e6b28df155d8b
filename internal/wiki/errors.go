package wiki

import (
	"strings"

	"github.com/rotisserie/eris"
)

var (
	// ErrInvalidArgument is wrapped with the offending parameter name, e.g. "title is required".
	ErrInvalidArgument = eris.New("invalid argument")
	// ErrPageNotFound is returned when a title does not resolve to a page.
	ErrPageNotFound = eris.New("Page not found!")
	// ErrSubmissionNotFound is returned when an id does not resolve to a submission.
	ErrSubmissionNotFound = eris.New("submission not found")
	// ErrSubmissionNotPending is returned when publishing a submission that is not a pending edit of the page.
	ErrSubmissionNotPending = eris.New("submission is not pending for this page")
	// ErrDuplicateTitle is returned when creating a page whose title is taken.
	ErrDuplicateTitle = eris.New("page title already exists")
)

func requireArgument(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return eris.Wrapf(ErrInvalidArgument, "%s is required", name)
	}
	return nil
}
