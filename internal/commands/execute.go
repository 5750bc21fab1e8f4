package commands

import "fmt"

type Result struct {
	Message string
	// Markdown marks Message as markdown to be rendered.
	Markdown bool
}

type Handlers struct {
	Optimize func(RangeArgs) (Result, error)
	Agenda   func(RangeArgs) (Result, error)
	Delete   func(DeleteArgs) (Result, error)
	Export   func(ExportArgs) (Result, error)
	History  func(HistoryArgs) (Result, error)
	Stats    func() (Result, error)
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeOptimize:
		if handlers.Optimize == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Optimize(*cmd.Optimize)
	case TypeAgenda:
		if handlers.Agenda == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Agenda(*cmd.Agenda)
	case TypeDelete:
		if handlers.Delete == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Delete(*cmd.Delete)
	case TypeExport:
		if handlers.Export == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Export(*cmd.Export)
	case TypeHistory:
		if handlers.History == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.History(*cmd.History)
	case TypeStats:
		if handlers.Stats == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Stats()
	case TypeHelp:
		msg := "Commands:\n"
		for _, line := range Usage() {
			msg += "    " + line + "\n"
		}
		return Result{Message: msg + "Anything else is read as a scheduling request."}, nil
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}

func missing(t Type) error {
	return &CommandError{Code: ErrCodeHandlerMissing, Message: fmt.Sprintf("%s handler not configured", t)}
}
