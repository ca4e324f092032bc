package provider

import (
	"context"
	"fmt"

	"github.com/Maris2112/tsunamibot-whatsapp/pkg/config"
	"github.com/Maris2112/tsunamibot-whatsapp/pkg/provider/flowise"
	providertypes "github.com/Maris2112/tsunamibot-whatsapp/pkg/provider/types"
)

// Client is the AI backend contract. Ask returns the raw answer value
// (string or list-shaped, the sanitizer copes with both); transport and
// status failures come back as errors and are absorbed by the pipeline.
type Client interface {
	Health(ctx context.Context) error
	Ask(ctx context.Context, question string, history []providertypes.Turn) (any, error)
}

// New resolves the configured AI backend client.
func New(cfg *config.Config) (Client, error) {
	providerID := cfg.Provider.Name
	if providerID == "" {
		providerID = "flowise"
	}

	switch providerID {
	case "flowise":
		return flowise.New(cfg.Provider.Flowise)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", providerID)
	}
}
