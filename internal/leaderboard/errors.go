package leaderboard

import (
	"strings"

	"github.com/rotisserie/eris"
)

var (
	// ErrInvalidArgument is wrapped with the offending parameter name.
	ErrInvalidArgument = eris.New("invalid argument")
	// ErrUnknownCategory is returned when a category name matches no known category.
	ErrUnknownCategory = eris.New("unknown category")
	// ErrInvalidBackup is returned when a backup fails validation.
	ErrInvalidBackup = eris.New("invalid backup")
)

func requireArgument(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return eris.Wrapf(ErrInvalidArgument, "%s is required", name)
	}
	return nil
}
