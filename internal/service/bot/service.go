package bot

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/dvbernardes/pastelbot/internal/config"
	"github.com/dvbernardes/pastelbot/internal/domain/models"
	"github.com/dvbernardes/pastelbot/internal/service/closure"
	"github.com/dvbernardes/pastelbot/internal/service/commands"
	"github.com/dvbernardes/pastelbot/pkg/clients/telegram"
)

const (
	callbackCarryoverYes = "carryover_yes"
	callbackCarryoverNo  = "carryover_no"

	operationTimeout = 30 * time.Second
)

const apologyText = "🐛 Ocorreu um erro inesperado no servidor. Tente novamente em instantes."

// Dispatcher executes parsed commands and closure decisions on the core.
type Dispatcher interface {
	HandleCommand(ctx context.Context, cmd models.Command, sessionID string) (commands.Reply, error)
	ResolveClosure(ctx context.Context, sessionID string, decision closure.Decision) (commands.Reply, error)
}

// MessagingService describes the operations the HTTP layer can perform.
type MessagingService interface {
	VerifyWebhookSecret(secret string) error
	HandleUpdate(ctx context.Context, update models.Update) error
	Notify(ctx context.Context, chatID, text string) error
}

// Service routes Telegram updates: text commands go to the dispatcher,
// carryover button presses resolve the pending closure.
type Service struct {
	cfg        config.TelegramConfig
	client     telegram.Client
	dispatcher Dispatcher
	logger     *zap.Logger
}

// NewService wires a new bot service instance.
func NewService(cfg config.TelegramConfig, client telegram.Client, dispatcher Dispatcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:        cfg,
		client:     client,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// VerifyWebhookSecret validates the secret token Telegram attaches to every
// webhook delivery.
func (s *Service) VerifyWebhookSecret(secret string) error {
	if secret == "" || secret != s.cfg.WebhookSecret {
		return errors.New("invalid webhook secret token")
	}
	return nil
}

// HandleUpdate processes one inbound update.
func (s *Service) HandleUpdate(ctx context.Context, update models.Update) error {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	if update.CallbackQuery != nil {
		return s.handleCallback(ctx, *update.CallbackQuery)
	}
	if update.Message != nil && update.Message.Text != "" {
		return s.handleMessage(ctx, *update.Message)
	}
	return nil
}

// Notify pushes a plain text message, used by the scheduled report.
func (s *Service) Notify(ctx context.Context, chatID, text string) error {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()
	return s.client.SendMessage(ctx, telegram.SendMessageRequest{ChatID: chatID, Text: text})
}

func (s *Service) handleMessage(ctx context.Context, msg models.Message) error {
	chatID := strconv.FormatInt(msg.Chat.ID, 10)
	cmd := models.ParseCommand(msg.Text)

	s.logger.Info("parsed inbound command",
		zap.String("chat", chatID),
		zap.String("command", string(cmd.Type)),
		zap.Strings("args", cmd.Args))

	reply, err := s.dispatcher.HandleCommand(ctx, cmd, chatID)
	if err != nil {
		s.logger.Error("command failed", zap.String("command", string(cmd.Type)), zap.Error(err))
		return s.client.SendMessage(ctx, telegram.SendMessageRequest{ChatID: chatID, Text: apologyText})
	}

	return s.deliver(ctx, chatID, reply)
}

func (s *Service) handleCallback(ctx context.Context, cb models.CallbackQuery) error {
	if err := s.client.AnswerCallbackQuery(ctx, cb.ID); err != nil {
		s.logger.Warn("failed to answer callback query", zap.Error(err))
	}

	var decision closure.Decision
	switch cb.Data {
	case callbackCarryoverYes:
		decision = closure.DecisionAccept
	case callbackCarryoverNo:
		decision = closure.DecisionDecline
	default:
		s.logger.Warn("unknown callback payload", zap.String("data", cb.Data))
		return nil
	}

	if cb.Message == nil {
		return errors.New("callback query without originating message")
	}
	chatID := strconv.FormatInt(cb.Message.Chat.ID, 10)

	reply, err := s.dispatcher.ResolveClosure(ctx, chatID, decision)
	if err != nil {
		s.logger.Error("closure resolution failed", zap.Error(err))
		return s.client.EditMessageText(ctx, telegram.EditMessageRequest{
			ChatID:    chatID,
			MessageID: cb.Message.MessageID,
			Text:      apologyText,
		})
	}

	return s.client.EditMessageText(ctx, telegram.EditMessageRequest{
		ChatID:    chatID,
		MessageID: cb.Message.MessageID,
		Text:      reply.Text,
	})
}

func (s *Service) deliver(ctx context.Context, chatID string, reply commands.Reply) error {
	req := telegram.SendMessageRequest{ChatID: chatID, Text: reply.Text}
	if reply.AskCarryover {
		req.ReplyMarkup = &telegram.InlineKeyboardMarkup{
			InlineKeyboard: [][]telegram.InlineKeyboardButton{{
				{Text: "✅ Sim, lançar", CallbackData: callbackCarryoverYes},
				{Text: "❌ Não, descartar", CallbackData: callbackCarryoverNo},
			}},
		}
	}

	if err := s.client.SendMessage(ctx, req); err != nil {
		return err
	}

	if reply.Document != nil {
		return s.client.SendDocument(ctx, telegram.SendDocumentRequest{
			ChatID:   chatID,
			FileName: reply.Document.Name,
			Data:     reply.Document.Data,
			Caption:  reply.Document.Caption,
		})
	}
	return nil
}
