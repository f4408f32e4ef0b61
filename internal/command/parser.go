package command

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gradticket-bot/config"
	"gradticket-bot/internal/calendar"
	"gradticket-bot/internal/model"
)

// Command is one parsed intent. Values are short-lived: produced and
// consumed within one message-processing step.
type Command interface {
	commandUser() string
}

// NewRecord creates or overwrites the sender's record for one ceremony.
type NewRecord struct {
	User      string
	Operation model.Operation
	Amount    int
	Date      string // canonical key resolved at parse time
}

// Resolve settles part or all of a transaction with another user. A nil
// ResolveAmount means the entire balance was transacted.
type Resolve struct {
	User          string
	ResolveWith   string
	ResolveAmount *int
}

// Delete removes every record the sender owns.
type Delete struct {
	User string
}

func (c NewRecord) commandUser() string { return c.User }
func (c Resolve) commandUser() string   { return c.User }
func (c Delete) commandUser() string    { return c.User }

// Parser matches one message body against the three grammar forms. The
// trigger and patterns are fixed at construction.
type Parser struct {
	trigger       string
	deleteCommand string
	commandRegex  *regexp.Regexp
	resolveRegex  *regexp.Regexp
}

func NewParser(cfg config.BotConfig) *Parser {
	trigger := regexp.QuoteMeta(cfg.Trigger)
	return &Parser{
		trigger:       cfg.Trigger,
		deleteCommand: cfg.DeleteCommand,
		commandRegex:  regexp.MustCompile(fmt.Sprintf(`^%s (buy|sell) (\d{1,2})(?: (.+))?$`, trigger)),
		resolveRegex:  regexp.MustCompile(fmt.Sprintf(`^%s resolve(?: (\d{1,2}))? (?:/u/)?([\w-]{3,})(?: (.+))?$`, trigger)),
	}
}

// Parse classifies one message body. The delete literal is recognised
// before grammar matching; the new-record form takes priority over resolve.
func (p *Parser) Parse(author, body string, cal *calendar.Calendar) (Command, error) {
	user := strings.ToLower(author)
	body = strings.TrimSpace(body)

	if !strings.Contains(body, p.trigger) {
		return nil, ErrNoCommand
	}

	if strings.Contains(body, p.deleteCommand) {
		return Delete{User: user}, nil
	}

	if groups := p.commandRegex.FindStringSubmatch(body); groups != nil {
		return p.parseNewRecord(user, body, groups, cal)
	}

	if groups := p.resolveRegex.FindStringSubmatch(body); groups != nil {
		return p.parseResolve(user, body, groups)
	}

	return nil, &InvalidCommandError{User: user, MessageBody: body}
}

func (p *Parser) parseNewRecord(user, body string, groups []string, cal *calendar.Calendar) (Command, error) {
	operation := model.Operation(groups[1])
	amount, err := strconv.Atoi(groups[2])
	if err != nil || amount < 1 {
		return nil, &InvalidCommandError{User: user, MessageBody: body}
	}

	dateText := groups[3]
	if dateText == "" {
		return nil, &MissingCeremonyDateError{
			User:      user,
			Operation: string(operation),
			Amount:    amount,
			Choices:   cal.Keys(),
		}
	}

	date, err := cal.Resolve(dateText)
	if err != nil {
		return nil, &InvalidCeremonyDateError{
			User:      user,
			Operation: string(operation),
			Amount:    amount,
			GivenDate: dateText,
			Choices:   cal.Keys(),
		}
	}

	return NewRecord{User: user, Operation: operation, Amount: amount, Date: date}, nil
}

func (p *Parser) parseResolve(user, body string, groups []string) (Command, error) {
	var resolveAmount *int
	if groups[1] != "" {
		amount, err := strconv.Atoi(groups[1])
		if err != nil || amount < 1 {
			return nil, &InvalidCommandError{User: user, MessageBody: body}
		}
		resolveAmount = &amount
	}

	return Resolve{
		User:          user,
		ResolveWith:   strings.ToLower(groups[2]),
		ResolveAmount: resolveAmount,
	}, nil
}
