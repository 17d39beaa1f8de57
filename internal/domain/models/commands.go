package models

import "strings"

// CommandType enumerates the operator commands understood by the bot.
type CommandType string

const (
	CommandStart        CommandType = "start"
	CommandRegister     CommandType = "registrar"
	CommandStock        CommandType = "estoque"
	CommandSale         CommandType = "venda"
	CommandConsumption  CommandType = "consumo"
	CommandDaily        CommandType = "diario"
	CommandCurrentStock CommandType = "ver_estoque"
	CommandClosure      CommandType = "fechamento"
	CommandProfit       CommandType = "lucro"
	CommandChart        CommandType = "grafico"
	CommandExport       CommandType = "vendas"
	CommandCancel       CommandType = "cancelar"
	CommandUnknown      CommandType = "unknown"
)

var knownCommands = map[string]CommandType{
	string(CommandStart):        CommandStart,
	string(CommandRegister):     CommandRegister,
	string(CommandStock):        CommandStock,
	string(CommandSale):         CommandSale,
	string(CommandConsumption):  CommandConsumption,
	string(CommandDaily):        CommandDaily,
	string(CommandCurrentStock): CommandCurrentStock,
	string(CommandClosure):      CommandClosure,
	string(CommandProfit):       CommandProfit,
	string(CommandChart):        CommandChart,
	string(CommandExport):       CommandExport,
	string(CommandCancel):       CommandCancel,
}

// Command represents a parsed operator instruction extracted from chat text.
type Command struct {
	Type CommandType
	Raw  string
	Args []string
}

// ParseCommand derives a Command from a free-form chat message. The leading
// slash is optional and a trailing @botname mention is ignored.
func ParseCommand(message string) Command {
	normalized := strings.TrimSpace(strings.ToLower(message))
	cmd := Command{Type: CommandUnknown, Raw: message}

	tokens := strings.Fields(normalized)
	if len(tokens) == 0 {
		return cmd
	}

	head := strings.TrimPrefix(tokens[0], "/")
	if at := strings.Index(head, "@"); at >= 0 {
		head = head[:at]
	}

	if kind, ok := knownCommands[head]; ok {
		cmd.Type = kind
	}

	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}

	return cmd
}
