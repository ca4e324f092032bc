package greenapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Maris2112/tsunamibot-whatsapp/pkg/config"
)

const defaultSendTimeout = 30 * time.Second

// Sender posts replies through the Green API sendMessage endpoint. It is
// the single outbound send site for the WhatsApp channel; failures are
// reported to the caller, which logs and absorbs them.
type Sender struct {
	sendURL    string
	httpClient *http.Client
	log        *slog.Logger
}

type sendRequest struct {
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

func NewSender(cfg config.GreenAPIConfig, log *slog.Logger) *Sender {
	if log == nil {
		log = slog.Default()
	}

	timeout := time.Duration(cfg.SendTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}

	return &Sender{
		sendURL: fmt.Sprintf("%s/waInstance%s/sendMessage/%s",
			strings.TrimRight(cfg.APIHost, "/"), cfg.InstanceID, cfg.Token),
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With("component", "channel.greenapi.sender"),
	}
}

// Send delivers one message. conversation is the bare identifier; the
// conversation-domain suffix is restored here before the call.
func (s *Sender) Send(ctx context.Context, conversation, text string) error {
	chatID := conversation
	if !strings.Contains(chatID, "@") {
		chatID += chatSuffix
	}

	body, err := json.Marshal(sendRequest{ChatID: chatID, Message: text})
	if err != nil {
		return fmt.Errorf("encode send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.sendURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("send message status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	s.log.Debug("message sent", "chat_id", chatID, "status", resp.StatusCode, "length", len(text))
	return nil
}
