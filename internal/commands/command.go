// Package commands parses the slash commands accepted next to free-text
// requests in the chat front end.
package commands

import (
	"fmt"
	"strconv"
	"strings"
)

type Type string

const (
	TypeOptimize Type = "optimize"
	TypeAgenda   Type = "agenda"
	TypeDelete   Type = "delete"
	TypeExport   Type = "export"
	TypeHistory  Type = "history"
	TypeStats    Type = "stats"
	TypeHelp     Type = "help"
)

// DefaultDays is the range /optimize, /agenda and /export cover when no
// day count is given.
const DefaultDays = 7

const maxDays = 366

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type RangeArgs struct {
	Days int
}

type DeleteArgs struct {
	ID string
}

type ExportArgs struct {
	Path string
	Days int
}

type HistoryArgs struct {
	Limit int
}

type Command struct {
	Type     Type
	Raw      string
	Optimize *RangeArgs
	Agenda   *RangeArgs
	Delete   *DeleteArgs
	Export   *ExportArgs
	History  *HistoryArgs
}

// IsCommand reports whether input is meant as a slash command rather than
// a scheduling request.
func IsCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]

	switch Type(head) {
	case TypeOptimize:
		days, err := parseDays(head, args)
		if err != nil {
			return Command{}, err
		}
		return Command{Type: TypeOptimize, Raw: input, Optimize: &RangeArgs{Days: days}}, nil
	case TypeAgenda:
		days, err := parseDays(head, args)
		if err != nil {
			return Command{}, err
		}
		return Command{Type: TypeAgenda, Raw: input, Agenda: &RangeArgs{Days: days}}, nil
	case TypeDelete:
		return parseDelete(input, args)
	case TypeExport:
		return parseExport(input, args)
	case TypeHistory:
		return parseHistory(input, args)
	case TypeStats, TypeHelp:
		if len(args) > 0 {
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s takes no arguments", head)}
		}
		return Command{Type: Type(head), Raw: input}, nil
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseDays(name string, args []string) (int, error) {
	switch len(args) {
	case 0:
		return DefaultDays, nil
	case 1:
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 || n > maxDays {
			return 0, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s expects a day count between 1 and %d", name, maxDays)}
		}
		return n, nil
	default:
		return 0, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s takes at most one argument", name)}
	}
}

func parseDelete(raw string, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "delete requires exactly one event id"}
	}
	return Command{Type: TypeDelete, Raw: raw, Delete: &DeleteArgs{ID: args[0]}}, nil
}

func parseExport(raw string, args []string) (Command, error) {
	if len(args) == 0 || len(args) > 2 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "export requires a file path and an optional day count"}
	}
	days, err := parseDays("export", args[1:])
	if err != nil {
		return Command{}, err
	}
	return Command{Type: TypeExport, Raw: raw, Export: &ExportArgs{Path: args[0], Days: days}}, nil
}

func parseHistory(raw string, args []string) (Command, error) {
	limit := 10
	if len(args) > 1 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "history takes at most one argument"}
	}
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "history limit must be a positive number"}
		}
		limit = n
	}
	return Command{Type: TypeHistory, Raw: raw, History: &HistoryArgs{Limit: limit}}, nil
}

// Usage lists every command with a one-line description.
func Usage() []string {
	return []string{
		"/agenda [days]          show upcoming events",
		"/optimize [days]        resolve overlaps in the coming days",
		"/delete <id>            remove one event",
		"/export <path> [days]   write an .ics file",
		"/history [n]            recent requests",
		"/stats                  engine counters",
		"/help                   this list",
	}
}
