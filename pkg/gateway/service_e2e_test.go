package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Maris2112/tsunamibot-whatsapp/pkg/bus"
	"github.com/Maris2112/tsunamibot-whatsapp/pkg/channel"
	"github.com/Maris2112/tsunamibot-whatsapp/pkg/config"
	"github.com/Maris2112/tsunamibot-whatsapp/pkg/pipeline"
	providertypes "github.com/Maris2112/tsunamibot-whatsapp/pkg/provider/types"
)

const testBotID = "7775885000@c.us"

type recordingBackend struct {
	mu sync.Mutex

	healthCalls int
	questions   []string
}

func (b *recordingBackend) Health(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.healthCalls++
	return nil
}

func (b *recordingBackend) Ask(_ context.Context, question string, _ []providertypes.Turn) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.questions = append(b.questions, question)
	return "ok:" + question, nil
}

func (b *recordingBackend) snapshot() (int, []string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	questions := make([]string, len(b.questions))
	copy(questions, b.questions)

	return b.healthCalls, questions
}

type scriptedAdapter struct {
	name    string
	inbound []bus.InboundMessage

	mu       sync.Mutex
	outbound []bus.OutboundMessage
	done     chan struct{}
}

func (a *scriptedAdapter) Name() string {
	return a.name
}

func (a *scriptedAdapter) Run(ctx context.Context, handler channel.Handler) error {
	for _, inbound := range a.inbound {
		outbound, err := handler(ctx, inbound)
		if err != nil {
			return err
		}

		a.mu.Lock()
		a.outbound = append(a.outbound, outbound)
		a.mu.Unlock()
	}

	close(a.done)

	<-ctx.Done()
	return nil
}

func (a *scriptedAdapter) outbounds() []bus.OutboundMessage {
	a.mu.Lock()
	defer a.mu.Unlock()

	outbound := make([]bus.OutboundMessage, len(a.outbound))
	copy(outbound, a.outbound)
	return outbound
}

func testServiceConfig(t *testing.T) *config.Config {
	return &config.Config{
		Gateway: config.GatewayConfig{Host: "127.0.0.1", Port: freeTCPPort(t)},
		Provider: config.ProviderConfig{
			Name: "flowise",
			Flowise: config.FlowiseConfig{
				URL:        "http://flowise.local",
				ErrorReply: "backend down",
			},
		},
		Channels: config.ChannelsConfig{
			GreenAPI: config.GreenAPIConfig{
				InstanceID: "7105000001",
				Token:      "secret",
				BotChatID:  testBotID,
			},
		},
		Pipeline: config.PipelineConfig{
			Greetings:     []string{"start"},
			GreetingReply: "welcome",
			DedupCapacity: 64,
			RepeatLimit:   4,
		},
	}
}

func inboundText(chatID, messageID, content string) bus.InboundMessage {
	return bus.InboundMessage{
		Channel:   "greenapi",
		EventType: bus.EventIncomingMessage,
		SenderID:  chatID + "@c.us",
		ChatID:    chatID,
		MessageID: messageID,
		Content:   content,
	}
}

func TestGatewayServiceRunE2E(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := &recordingBackend{}
	cfg := testServiceConfig(t)

	adapter := &scriptedAdapter{
		name: "greenapi",
		inbound: []bus.InboundMessage{
			inboundText("100", "m1", "one"),
			inboundText("100", "m1", "one"), // duplicate delivery
			inboundText("100", "m2", "start"),
			{Channel: "greenapi", EventType: "stateInstanceChanged", SenderID: "100@c.us", ChatID: "100", Content: "x"},
			inboundText("200", "m3", "three"),
		},
		done: make(chan struct{}),
	}

	svc := &Service{
		cfg:      cfg,
		log:      slog.Default().With("component", "gateway.service.test"),
		provider: backend,
		pipeline: pipeline.New(cfg, backend, slog.Default()),
		channels: []channel.Adapter{adapter},
		channelStates: map[string]channelState{
			adapter.Name(): {},
		},
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Run(ctx)
	}()

	select {
	case <-adapter.done:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for adapter scripted messages")
	}

	statusURL := fmt.Sprintf("http://%s:%d/healthz", cfg.Gateway.Host, cfg.Gateway.Port)
	requireEventuallyOK(t, statusURL)

	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for service run to exit")
	}

	healthCalls, questions := backend.snapshot()
	require.GreaterOrEqual(t, healthCalls, 1)
	require.Equal(t, []string{"one", "three"}, questions)

	outbounds := adapter.outbounds()
	require.Len(t, outbounds, 5)
	require.Equal(t, pipeline.StatusOK, outbounds[0].Status)
	require.Equal(t, "ok:one", outbounds[0].Content)
	require.Equal(t, pipeline.StatusDuplicate, outbounds[1].Status)
	require.Empty(t, outbounds[1].Content)
	require.Equal(t, pipeline.StatusOK, outbounds[2].Status)
	require.Equal(t, "welcome", outbounds[2].Content)
	require.Equal(t, pipeline.StatusIgnored, outbounds[3].Status)
	require.Equal(t, "ok:three", outbounds[4].Content)
}

func TestGatewayServiceReadiness(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := &recordingBackend{}
	cfg := testServiceConfig(t)

	adapter := &scriptedAdapter{name: "greenapi", done: make(chan struct{})}

	svc := &Service{
		cfg:           cfg,
		log:           slog.Default(),
		provider:      backend,
		pipeline:      pipeline.New(cfg, backend, slog.Default()),
		channels:      []channel.Adapter{adapter},
		channelStates: map[string]channelState{adapter.Name(): {}},
	}

	go func() { _ = svc.Run(ctx) }()

	readyURL := fmt.Sprintf("http://%s:%d/readyz", cfg.Gateway.Host, cfg.Gateway.Port)
	requireEventuallyOK(t, readyURL)

	var status statusResponse
	resp, err := http.Get(readyURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	require.Equal(t, "ready", status.Status)
	require.True(t, status.Channels["greenapi"].Running)
}

func requireEventuallyOK(t *testing.T, url string) {
	t.Helper()

	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 50*time.Millisecond)
}

func freeTCPPort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	return listener.Addr().(*net.TCPAddr).Port
}
