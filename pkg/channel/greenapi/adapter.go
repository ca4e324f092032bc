package greenapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Maris2112/tsunamibot-whatsapp/pkg/channel"
	"github.com/Maris2112/tsunamibot-whatsapp/pkg/config"
	"github.com/Maris2112/tsunamibot-whatsapp/pkg/pipeline"
)

const channelName = "greenapi"

// Webhook bodies are small notification objects; anything bigger is junk.
const maxBodyBytes = 1 << 20

const webhookPath = "/whatsapp-webhook"

// Adapter serves the Green API webhook endpoint and dispatches replies
// through its Sender. One adapter instance handles the whole WhatsApp
// channel for the process.
type Adapter struct {
	cfg    config.GreenAPIConfig
	sender *Sender
	log    *slog.Logger
}

// NewAdapter validates Green API configuration and constructs the adapter.
func NewAdapter(cfg config.GreenAPIConfig, log *slog.Logger) (*Adapter, error) {
	if cfg.InstanceID == "" || cfg.Token == "" {
		return nil, errors.New("greenapi instance id and token are required")
	}
	if cfg.BotChatID == "" {
		return nil, errors.New("greenapi bot chat id is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Adapter{
		cfg:    cfg,
		sender: NewSender(cfg, log),
		log:    log.With("component", "channel.greenapi"),
	}, nil
}

// Name returns the channel identifier used in bus metadata and logs.
func (a *Adapter) Name() string {
	return channelName
}

// Run serves the webhook endpoint until the context is canceled.
func (a *Adapter) Run(ctx context.Context, handler channel.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	mux := http.NewServeMux()
	mux.HandleFunc(webhookPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		a.handleWebhook(w, r, handler)
	})
	mux.HandleFunc("/", a.handleRoot)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.WebhookPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	a.log.Info("Webhook server started", "address", server.Addr, "path", webhookPath)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve webhook: %w", err)
	}

	return nil
}

// handleRoot answers the platform health probe with a fixed confirmation.
func (a *Adapter) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	fmt.Fprint(w, "Tsunamibot WhatsApp relay is running")
}

func (a *Adapter) handleWebhook(w http.ResponseWriter, r *http.Request, handler channel.Handler) {
	log := a.log.With("request_id", uuid.NewString())

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		log.Error("Failed to read webhook body", "error", err)
		writeStatus(w, http.StatusInternalServerError, pipeline.StatusFail)
		return
	}

	msg, err := Normalize(body)
	if err != nil {
		log.Error("Malformed webhook payload", "error", err)
		writeStatus(w, http.StatusInternalServerError, pipeline.StatusFail)
		return
	}

	out, err := handler(r.Context(), msg)
	if err != nil {
		log.Error("Failed to process inbound event", "message_id", msg.MessageID, "error", err)
		writeStatus(w, http.StatusInternalServerError, pipeline.StatusFail)
		return
	}

	if out.Content != "" {
		// Send failures are absorbed: the platform still gets a 200 so a
		// flaky gateway cannot trigger a redelivery storm.
		if err := a.sender.Send(r.Context(), out.ChatID, out.Content); err != nil {
			log.Error("Failed to send reply", "chat_id", out.ChatID, "error", err)
		}
	}

	log.Info("Webhook handled", "status", out.Status, "message_id", msg.MessageID, "chat_id", msg.ChatID)
	writeStatus(w, http.StatusOK, out.Status)
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, "{\"status\":%q}\n", status)
}
