package telegram

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dvbernardes/pastelbot/internal/config"
)

// Client exposes the Telegram Bot API operations used by the application.
type Client interface {
	SendMessage(ctx context.Context, req SendMessageRequest) error
	EditMessageText(ctx context.Context, req EditMessageRequest) error
	AnswerCallbackQuery(ctx context.Context, callbackQueryID string) error
	SendDocument(ctx context.Context, req SendDocumentRequest) error
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
}

// NewClient builds a Telegram Bot API client using the provided configuration.
func NewClient(cfg config.TelegramConfig) *APIClient {
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	restyClient := resty.New()
	restyClient.
		SetBaseURL(fmt.Sprintf("%s/bot%s", base, cfg.Token)).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	return &APIClient{httpClient: restyClient}
}

// InlineKeyboardButton is one pressable button under a message.
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// InlineKeyboardMarkup attaches button rows to an outgoing message.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// SendMessageRequest represents a simplified outgoing text message.
type SendMessageRequest struct {
	ChatID      string
	Text        string
	ReplyMarkup *InlineKeyboardMarkup
}

// EditMessageRequest replaces the text of an already delivered message.
type EditMessageRequest struct {
	ChatID    string
	MessageID int64
	Text      string
}

// SendDocumentRequest uploads a file attachment to a chat.
type SendDocumentRequest struct {
	ChatID   string
	FileName string
	Data     []byte
	Caption  string
}

// apiResponse is the Bot API envelope shared by every method.
type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// SendMessage delivers a Markdown text message, optionally with an inline
// keyboard.
func (c *APIClient) SendMessage(ctx context.Context, req SendMessageRequest) error {
	payload := map[string]any{
		"chat_id":    req.ChatID,
		"text":       req.Text,
		"parse_mode": "Markdown",
	}
	if req.ReplyMarkup != nil {
		payload["reply_markup"] = req.ReplyMarkup
	}
	return c.post(ctx, "/sendMessage", payload)
}

// EditMessageText rewrites a delivered message, removing its keyboard.
func (c *APIClient) EditMessageText(ctx context.Context, req EditMessageRequest) error {
	payload := map[string]any{
		"chat_id":    req.ChatID,
		"message_id": req.MessageID,
		"text":       req.Text,
		"parse_mode": "Markdown",
	}
	return c.post(ctx, "/editMessageText", payload)
}

// AnswerCallbackQuery acknowledges a button press so the client stops
// showing its spinner.
func (c *APIClient) AnswerCallbackQuery(ctx context.Context, callbackQueryID string) error {
	return c.post(ctx, "/answerCallbackQuery", map[string]any{
		"callback_query_id": callbackQueryID,
	})
}

// SendDocument uploads the attachment as multipart form data.
func (c *APIClient) SendDocument(ctx context.Context, req SendDocumentRequest) error {
	result := new(apiResponse)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFileReader("document", req.FileName, bytes.NewReader(req.Data)).
		SetFormData(map[string]string{
			"chat_id": req.ChatID,
			"caption": req.Caption,
		}).
		SetResult(result).
		SetError(result).
		Post("/sendDocument")
	if err != nil {
		return fmt.Errorf("send telegram document: %w", err)
	}
	return checkResponse(resp, result)
}

func (c *APIClient) post(ctx context.Context, path string, payload map[string]any) error {
	result := new(apiResponse)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(result).
		SetError(result).
		Post(path)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", path, err)
	}
	return checkResponse(resp, result)
}

func checkResponse(resp *resty.Response, result *apiResponse) error {
	if resp.StatusCode() >= http.StatusBadRequest || !result.OK {
		code := result.ErrorCode
		if code == 0 {
			code = resp.StatusCode()
		}
		return fmt.Errorf("telegram api error: code=%d, description=%s", code, result.Description)
	}
	return nil
}
