package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/dvbernardes/pastelbot/internal/config"
	"github.com/dvbernardes/pastelbot/internal/domain/models"
	"github.com/dvbernardes/pastelbot/internal/repository/ledger"
	"github.com/dvbernardes/pastelbot/internal/service/closure"
	"github.com/dvbernardes/pastelbot/internal/service/inventory"
	"github.com/dvbernardes/pastelbot/internal/service/reporting"
)

// ErrInvalidArguments indicates the command payload could not be parsed.
var ErrInvalidArguments = errors.New("invalid command arguments")

// Reply is the dispatcher's answer to one command. AskCarryover marks that
// the transport should attach the yes/no carryover buttons; Document carries
// a file attachment.
type Reply struct {
	Text         string
	AskCarryover bool
	Document     *Document
}

// Document is a file attachment for a reply.
type Document struct {
	Name    string
	Data    []byte
	Caption string
}

// Service executes parsed operator commands against the core services and
// renders the user-facing answers. Expected domain errors (bad arguments,
// invalid flavor, insufficient stock) become friendly replies; everything
// else propagates for the transport layer to apologize and log.
type Service struct {
	inventory *inventory.Service
	reporting *reporting.Service
	closure   *closure.Service
	store     *ledger.Store
	business  config.BusinessConfig
	files     config.DriveConfig
	logger    *zap.Logger
}

// NewService constructs a command dispatcher.
func NewService(inventorySvc *inventory.Service, reportingSvc *reporting.Service, closureSvc *closure.Service, store *ledger.Store, business config.BusinessConfig, files config.DriveConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		inventory: inventorySvc,
		reporting: reportingSvc,
		closure:   closureSvc,
		store:     store,
		business:  business,
		files:     files,
		logger:    logger,
	}
}

// HandleCommand executes one command on behalf of the given session.
func (s *Service) HandleCommand(ctx context.Context, cmd models.Command, sessionID string) (Reply, error) {
	s.logger.Debug("dispatching command",
		zap.String("command", string(cmd.Type)),
		zap.String("session", sessionID),
		zap.Strings("args", cmd.Args))

	switch cmd.Type {
	case models.CommandStart:
		return Reply{Text: helpText}, nil
	case models.CommandRegister:
		return Reply{Text: fmt.Sprintf("✅ Chat registrado.\n\nPara relatórios automáticos, defina a variável `TELEGRAM_CHAT_ID` com este valor:\n`%s`", sessionID)}, nil
	case models.CommandStock:
		return s.handleSetStock(ctx, cmd)
	case models.CommandSale:
		return s.handleSale(ctx, cmd)
	case models.CommandConsumption:
		return s.handleConsumption(ctx, cmd)
	case models.CommandDaily:
		return s.handleDaily(ctx, cmd)
	case models.CommandCurrentStock:
		return s.handleCurrentStock(ctx)
	case models.CommandClosure:
		return s.handleClosure(ctx, sessionID)
	case models.CommandProfit:
		return s.handleProfit(ctx, cmd)
	case models.CommandChart:
		return s.handleChart(ctx, cmd)
	case models.CommandExport:
		return s.handleExport(ctx)
	case models.CommandCancel:
		return s.handleCancel(ctx, sessionID)
	default:
		return Reply{Text: "Comando não reconhecido. Use /start para ver os comandos disponíveis."}, nil
	}
}

// ResolveClosure applies a carryover decision coming from an inline button
// press and renders the resulting message.
func (s *Service) ResolveClosure(ctx context.Context, sessionID string, decision closure.Decision) (Reply, error) {
	outcome, err := s.closure.Resolve(ctx, sessionID, decision)
	if errors.Is(err, closure.ErrNoPendingClosure) {
		return Reply{Text: "Erro: dados do fechamento não encontrados. Rode /fechamento novamente."}, nil
	}
	if err != nil {
		return Reply{}, err
	}

	if outcome.Phase == closure.PhaseCancelled {
		return Reply{Text: "Operação cancelada."}, nil
	}
	if decision == closure.DecisionAccept {
		return Reply{Text: "✅ Fechamento concluído! Relatório salvo e sobras lançadas para amanhã."}, nil
	}
	return Reply{Text: "✅ Fechamento concluído! Relatório salvo e sobras descartadas."}, nil
}

func (s *Service) handleSetStock(ctx context.Context, cmd models.Command) (Reply, error) {
	if len(cmd.Args) == 0 || len(cmd.Args)%2 != 0 {
		return Reply{Text: "❌ Erro! Formato: `/estoque [sabor1] [qtd1] [sabor2] [qtd2]...`"}, nil
	}

	items := make([]inventory.StockItem, 0, len(cmd.Args)/2)
	for i := 0; i < len(cmd.Args); i += 2 {
		qty, err := strconv.Atoi(cmd.Args[i+1])
		if err != nil {
			return Reply{Text: "❌ Erro! Formato: `/estoque [sabor1] [qtd1] [sabor2] [qtd2]...`"}, nil
		}
		items = append(items, inventory.StockItem{Flavor: models.Flavor(cmd.Args[i]), Quantity: qty})
	}

	err := s.inventory.SetStock(ctx, items)
	switch {
	case errors.Is(err, inventory.ErrInvalidFlavor):
		return Reply{Text: fmt.Sprintf("❌ Sabor inválido. Use: *%s*.", s.business.FlavorList())}, nil
	case errors.Is(err, inventory.ErrInvalidQuantity):
		return Reply{Text: "❌ Quantidade inválida. Informe um número maior ou igual a zero."}, nil
	case errors.Is(err, inventory.ErrStockLocked):
		return Reply{Text: "⚠️ Já existem vendas ou consumos registrados hoje para esse sabor. O estoque inicial não pode mais ser redefinido."}, nil
	case err != nil:
		return Reply{}, err
	}

	text := "✅ Estoque inicial de hoje definido:\n"
	for _, item := range items {
		text += fmt.Sprintf("  - %s: %d unidades\n", item.Flavor.Title(), item.Quantity)
	}
	return Reply{Text: text}, nil
}

func (s *Service) handleSale(ctx context.Context, cmd models.Command) (Reply, error) {
	flavor, qty, err := parseMovement(cmd.Args)
	if err != nil {
		return Reply{Text: "❌ *Erro!* Formato: `/venda [sabor] [quantidade]`"}, nil
	}

	_, remaining, err := s.inventory.RecordSale(ctx, flavor, qty)
	if reply, handled := s.movementErrorReply(err); handled {
		return reply, nil
	}
	if err != nil {
		return Reply{}, err
	}

	return Reply{Text: fmt.Sprintf("✅ Venda registrada! Estoque restante de %s: %d", flavor.Title(), remaining)}, nil
}

func (s *Service) handleConsumption(ctx context.Context, cmd models.Command) (Reply, error) {
	flavor, qty, err := parseMovement(cmd.Args)
	if err != nil {
		return Reply{Text: "❌ *Erro!* Formato: `/consumo [sabor] [quantidade]`"}, nil
	}

	_, remaining, err := s.inventory.RecordConsumption(ctx, flavor, qty)
	if reply, handled := s.movementErrorReply(err); handled {
		return reply, nil
	}
	if err != nil {
		return Reply{}, err
	}

	return Reply{Text: fmt.Sprintf("✅ Consumo pessoal registrado! Estoque restante de %s: %d", flavor.Title(), remaining)}, nil
}

// movementErrorReply converts the expected recorder rejections into user
// replies. Unexpected errors are left for the caller.
func (s *Service) movementErrorReply(err error) (Reply, bool) {
	var insufficient *inventory.InsufficientStockError
	switch {
	case err == nil:
		return Reply{}, false
	case errors.Is(err, inventory.ErrInvalidFlavor):
		return Reply{Text: fmt.Sprintf("❌ Sabor inválido. Use: *%s*.", s.business.FlavorList())}, true
	case errors.Is(err, inventory.ErrInvalidQuantity):
		return Reply{Text: "❌ Quantidade inválida. Informe um número maior que zero."}, true
	case errors.Is(err, inventory.ErrStockNotDeclared):
		return Reply{Text: "⚠️ Atenção! Estoque de hoje não definido para esse sabor. Use `/estoque`."}, true
	case errors.As(err, &insufficient):
		return Reply{Text: fmt.Sprintf("❌ Não registrado! Estoque insuficiente: *%d*.", insufficient.Available)}, true
	default:
		return Reply{}, false
	}
}

func (s *Service) handleDaily(ctx context.Context, cmd models.Command) (Reply, error) {
	date := s.reporting.Today()
	if len(cmd.Args) > 0 {
		parsed, err := time.ParseInLocation(models.DateLayout, cmd.Args[0], time.UTC)
		if err != nil {
			return Reply{Text: "❌ Erro! Formato: `/diario [AAAA-MM-DD]`"}, nil
		}
		date = parsed
	}

	report, err := s.reporting.BuildDailyReport(ctx, date)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: FormatDailyReport(report)}, nil
}

func (s *Service) handleCurrentStock(ctx context.Context) (Reply, error) {
	snapshot, err := s.inventory.Snapshot(ctx, s.inventory.Today())
	if err != nil {
		return Reply{}, err
	}
	if len(snapshot) == 0 {
		return Reply{Text: "Estoque de hoje ainda não definido. Use `/estoque`."}, nil
	}

	text := "📦 *Estoque Atual*\n\n"
	for _, flavor := range s.business.Flavors {
		avail, ok := snapshot[flavor]
		if !ok {
			continue
		}
		text += fmt.Sprintf("- %s: *%d* unidades\n", flavor.Title(), avail.Remaining())
	}
	return Reply{Text: text}, nil
}

func (s *Service) handleClosure(ctx context.Context, sessionID string) (Reply, error) {
	outcome, err := s.closure.Begin(ctx, sessionID)
	if err != nil {
		return Reply{}, err
	}

	text := FormatDailyReport(outcome.Report)
	if outcome.Phase == closure.PhaseAwaitingDecision {
		text += "\n\nForam encontradas as seguintes sobras:\n"
		text += formatLeftovers(outcome.Report, s.business.Flavors)
		text += "\nDeseja lançá-las como estoque inicial para amanhã?"
		return Reply{Text: text, AskCarryover: true}, nil
	}

	text += "\n\n✅ Nenhuma sobra de estoque encontrada. Fechamento concluído e salvo no histórico!"
	return Reply{Text: text}, nil
}

func (s *Service) handleProfit(ctx context.Context, cmd models.Command) (Reply, error) {
	days, err := parseDays(cmd.Args)
	if err != nil {
		return Reply{Text: "❌ Erro! Formato: `/lucro [dias]`"}, nil
	}

	summary, err := s.reporting.ProfitWindow(ctx, days)
	if err != nil {
		return Reply{}, err
	}
	if summary.Units == 0 {
		return Reply{Text: fmt.Sprintf("Nenhuma venda registrada nos últimos %d dias.", days)}, nil
	}

	text := fmt.Sprintf("📈 *Lucro (Margem) dos Últimos %d Dias*\n_%s a %s_\n\n🚀 Lucro Líquido Total: *R$ %s*",
		days,
		summary.From.Format(displayDateLayout),
		summary.To.Format(displayDateLayout),
		summary.Total.StringFixed(2))
	return Reply{Text: text}, nil
}

func (s *Service) handleChart(ctx context.Context, cmd models.Command) (Reply, error) {
	days, err := parseDays(cmd.Args)
	if err != nil {
		return Reply{Text: "❌ Erro! Formato: `/grafico [dias]`"}, nil
	}

	points, err := s.reporting.ProfitSeries(ctx, days)
	if err != nil {
		return Reply{}, err
	}
	if len(points) == 0 {
		return Reply{Text: fmt.Sprintf("Nenhuma venda nos últimos %d dias.", days)}, nil
	}
	return Reply{Text: renderProfitChart(days, points)}, nil
}

func (s *Service) handleExport(ctx context.Context) (Reply, error) {
	data, err := s.store.ExportSales(ctx)
	if err != nil {
		return Reply{}, err
	}
	if data == nil {
		return Reply{Text: "Nenhum arquivo de vendas encontrado."}, nil
	}
	return Reply{
		Text: "Enviando o histórico de vendas...",
		Document: &Document{
			Name:    s.files.SalesFile,
			Data:    data,
			Caption: "Aqui está o seu relatório de vendas completo.",
		},
	}, nil
}

func (s *Service) handleCancel(ctx context.Context, sessionID string) (Reply, error) {
	_, err := s.closure.Resolve(ctx, sessionID, closure.DecisionCancel)
	if errors.Is(err, closure.ErrNoPendingClosure) {
		return Reply{Text: "Nenhuma operação em andamento para cancelar."}, nil
	}
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: "Operação cancelada."}, nil
}

func parseMovement(args []string) (models.Flavor, int, error) {
	if len(args) != 2 {
		return "", 0, ErrInvalidArguments
	}
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return "", 0, fmt.Errorf("%w: %s", ErrInvalidArguments, args[1])
	}
	return models.Flavor(args[0]), qty, nil
}

func parseDays(args []string) (int, error) {
	if len(args) == 0 {
		return 0, ErrInvalidArguments
	}
	days, err := strconv.Atoi(args[0])
	if err != nil || days <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidArguments, args[0])
	}
	return days, nil
}
