package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvbernardes/pastelbot/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *APIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(config.TelegramConfig{Token: "test-token", BaseURL: server.URL})
}

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	err := client.SendMessage(context.Background(), SendMessageRequest{
		ChatID: "42",
		Text:   "✅ Venda registrada!",
		ReplyMarkup: &InlineKeyboardMarkup{
			InlineKeyboard: [][]InlineKeyboardButton{{{Text: "Sim", CallbackData: "carryover_yes"}}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "/bottest-token/sendMessage", gotPath)
	assert.Equal(t, "42", gotBody["chat_id"])
	assert.Equal(t, "Markdown", gotBody["parse_mode"])
	assert.Contains(t, gotBody, "reply_markup")
}

func TestSendMessageAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"chat not found"}`))
	})

	err := client.SendMessage(context.Background(), SendMessageRequest{ChatID: "0", Text: "oi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestAnswerCallbackQuery(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	require.NoError(t, client.AnswerCallbackQuery(context.Background(), "cb-1"))
	assert.Equal(t, "cb-1", gotBody["callback_query_id"])
}

func TestSendDocument(t *testing.T) {
	var gotChatID, gotFileName string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotChatID = r.FormValue("chat_id")
		file, header, err := r.FormFile("document")
		require.NoError(t, err)
		defer func() { _ = file.Close() }()
		gotFileName = header.Filename
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	err := client.SendDocument(context.Background(), SendDocumentRequest{
		ChatID:   "42",
		FileName: "vendas.csv",
		Data:     []byte("timestamp,flavor\n"),
		Caption:  "histórico",
	})
	require.NoError(t, err)
	assert.Equal(t, "42", gotChatID)
	assert.Equal(t, "vendas.csv", gotFileName)
}
