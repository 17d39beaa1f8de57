package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType CommandType
		wantArgs []string
	}{
		{name: "slash command", input: "/venda carne 4", wantType: CommandSale, wantArgs: []string{"carne", "4"}},
		{name: "no slash", input: "venda carne 4", wantType: CommandSale, wantArgs: []string{"carne", "4"}},
		{name: "uppercase input", input: "/VENDA Carne 4", wantType: CommandSale, wantArgs: []string{"carne", "4"}},
		{name: "bot mention stripped", input: "/fechamento@pastelbot", wantType: CommandClosure},
		{name: "surrounding whitespace", input: "  /diario 2026-08-29  ", wantType: CommandDaily, wantArgs: []string{"2026-08-29"}},
		{name: "multiple stock pairs", input: "/estoque carne 10 frango 8", wantType: CommandStock, wantArgs: []string{"carne", "10", "frango", "8"}},
		{name: "unknown command", input: "/pedido carne", wantType: CommandUnknown, wantArgs: []string{"carne"}},
		{name: "free text", input: "bom dia", wantType: CommandUnknown, wantArgs: []string{"dia"}},
		{name: "empty message", input: "   ", wantType: CommandUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := ParseCommand(tt.input)
			assert.Equal(t, tt.wantType, cmd.Type)
			assert.Equal(t, tt.wantArgs, cmd.Args)
			assert.Equal(t, tt.input, cmd.Raw)
		})
	}
}
