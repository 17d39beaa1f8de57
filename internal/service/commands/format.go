package commands

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvbernardes/pastelbot/internal/domain/models"
)

const displayDateLayout = "02/01/2006"

const helpText = "Olá! Bem-vindo ao seu assistente de gestão!\n\n" +
	"**COMANDO DE FIM DE EXPEDIENTE**\n" +
	"*/fechamento*\n" +
	"_Gera o relatório final, salva no histórico e pergunta sobre as sobras._\n\n" +
	"**GESTÃO DIÁRIA**\n" +
	"*/estoque [sabor] [qtd]...*\n" +
	"Define o estoque inicial do dia.\n" +
	"*/venda [sabor] [qtd]*\n" +
	"Registra uma venda.\n" +
	"*/consumo [sabor] [qtd]*\n" +
	"Registra um consumo pessoal.\n" +
	"*/ver_estoque*\n" +
	"Consulta rápida do estoque atual.\n\n" +
	"**RELATÓRIOS E ANÁLISE**\n" +
	"*/diario [data]*\n" +
	"Relatório completo do dia.\n" +
	"*/lucro [dias]*\n" +
	"Lucro acumulado nos últimos dias.\n" +
	"*/grafico [dias]*\n" +
	"Desempenho do lucro por dia.\n" +
	"*/vendas*\n" +
	"Envia o arquivo `.csv` com o histórico de vendas.\n\n" +
	"**CONFIGURAÇÃO**\n" +
	"*/registrar*\n" +
	"Ativa os relatórios automáticos."

// FormatDailyReport renders the structured daily report as the Markdown
// message sent to the operator.
func FormatDailyReport(r models.DailyReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 *Fechamento do Dia: %s*\n\n", r.Date.Format(displayDateLayout))

	fmt.Fprintf(&b, "💰 *RESUMO FINANCEIRO*\n")
	fmt.Fprintf(&b, "  - Faturamento Bruto: *R$ %s*\n", r.GrossRevenue.StringFixed(2))
	fmt.Fprintf(&b, "  - Lucro (Margem das Vendas): *R$ %s*\n\n", r.Margin.StringFixed(2))

	b.WriteString("📦 *GESTÃO DE ESTOQUE*\n")
	if r.StockDeclared {
		for _, line := range r.Lines {
			fmt.Fprintf(&b, "  - `%s`: Ini: %d, Ven: %d, Con: %d ➜ Sobra: *%d*\n",
				line.Flavor.Title(), line.Initial, line.Sold, line.Consumed, line.Leftover())
		}
	} else {
		b.WriteString("_Nenhum estoque inicial definido._\n")
	}

	b.WriteString("\n🎯 *RESULTADO FINAL DO DIA*\n")
	if r.StockDeclared {
		fmt.Fprintf(&b, "  - Lucro das Vendas: `R$ %s`\n", r.Margin.StringFixed(2))
		fmt.Fprintf(&b, "  - Custo do Consumo: `R$ -%s`\n", r.ConsumptionCost.StringFixed(2))
		b.WriteString("  --------------------------------\n")
		if r.NetResult.IsNegative() {
			fmt.Fprintf(&b, "  - Resultado: *📉 Prejuízo de R$ %s*", r.NetResult.Neg().StringFixed(2))
		} else {
			fmt.Fprintf(&b, "  - Resultado: *🚀 Lucro de R$ %s*", r.NetResult.StringFixed(2))
		}
	} else {
		b.WriteString("_Impossível calcular sem o estoque inicial._")
	}

	return b.String()
}

func formatLeftovers(r models.DailyReport, order []models.Flavor) string {
	leftovers := r.Leftovers()
	var b strings.Builder
	for _, flavor := range order {
		if qty := leftovers[flavor]; qty > 0 {
			fmt.Fprintf(&b, "  - %s: %d\n", flavor.Title(), qty)
		}
	}
	return b.String()
}

// renderProfitChart draws the per-day margin as a text bar chart. Image
// rendering stays outside the core.
func renderProfitChart(days int, points []models.ProfitPoint) string {
	const maxBars = 16

	maxMargin := decimal.Zero
	total := decimal.Zero
	for _, p := range points {
		if p.Margin.GreaterThan(maxMargin) {
			maxMargin = p.Margin
		}
		total = total.Add(p.Margin)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📈 *Lucro por Dia (Últimos %d Dias)*\n\n", days)
	for _, p := range points {
		bars := 0
		if p.Margin.IsPositive() && maxMargin.IsPositive() {
			ratio, _ := p.Margin.Div(maxMargin).Float64()
			bars = int(ratio * maxBars)
			if bars == 0 {
				bars = 1
			}
		}
		fmt.Fprintf(&b, "`%s` %s R$ %s\n", p.Date.Format("02/01"), strings.Repeat("▇", bars), p.Margin.StringFixed(2))
	}

	mean := total.Div(decimal.NewFromInt(int64(len(points))))
	fmt.Fprintf(&b, "\n▫️ Lucro Total no Período: *R$ %s*\n", total.StringFixed(2))
	fmt.Fprintf(&b, "▫️ Média de Lucro Diário: *R$ %s*", mean.StringFixed(2))
	return b.String()
}
