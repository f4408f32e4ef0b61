package command

import (
	"errors"
	"fmt"
)

// ErrNoCommand means the trigger token is absent from the message body. It
// is not user-facing: the caller leaves the message unread so a later cycle
// sees it again.
var ErrNoCommand = errors.New("no command in message")

// InvalidCommandError: the trigger is present but no grammar form matches.
type InvalidCommandError struct {
	User        string
	MessageBody string
}

func (e *InvalidCommandError) Error() string {
	return fmt.Sprintf("invalid command from user=[%s]: %s", e.User, e.MessageBody)
}

// MissingCeremonyDateError: the new-record grammar matched but the date
// segment was absent.
type MissingCeremonyDateError struct {
	User      string
	Operation string
	Amount    int
	Choices   []string
}

func (e *MissingCeremonyDateError) Error() string {
	return fmt.Sprintf("missing ceremony date in command: user=[%s], operation=[%s], amount=[%d]",
		e.User, e.Operation, e.Amount)
}

// InvalidCeremonyDateError: a date segment was given but it does not
// resolve to any scheduled ceremony, either because it cannot be parsed or
// because it parses to an unknown day.
type InvalidCeremonyDateError struct {
	User      string
	Operation string
	Amount    int
	GivenDate string
	Choices   []string
}

func (e *InvalidCeremonyDateError) Error() string {
	return fmt.Sprintf("invalid ceremony date: user=[%s], given=[%s], choices=%v",
		e.User, e.GivenDate, e.Choices)
}
