package provider

import (
	"strings"

	"github.com/logema/payments-backend/internal/config"
	"github.com/logema/payments-backend/internal/models"
	"github.com/logema/payments-backend/internal/pkg/apperror"
)

// webhookNames maps the provider path segment of webhook URLs to the payment
// method it serves.
var webhookNames = map[string]string{
	"orange": models.PaymentMethodOrangeMoney,
	"mtn":    models.PaymentMethodMTNMoney,
	"wave":   models.PaymentMethodWave,
}

// Registry resolves payment methods to provider clients. It is built once at
// startup and passed by reference, so there is no global provider state.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds the provider set from configuration. A provider runs in
// sandbox mode when the global sandbox flag is on or its credentials are
// absent, which keeps development and CI environments off the live networks.
func NewRegistry(cfg *config.Config) *Registry {
	r := &Registry{providers: make(map[string]Provider)}

	r.register(
		NewOrangeMoney(cfg.OrangeMoney.APIKey, cfg.OrangeMoney.APISecret, cfg.ProviderTimeout, cfg.FrontendURL, cfg.BackendURL),
		cfg.SandboxMode || cfg.OrangeMoney.Empty(),
	)
	r.register(
		NewMTNMoney(cfg.MTNMoney.APIKey, cfg.MTNMoney.APISecret, cfg.ProviderTimeout),
		cfg.SandboxMode || cfg.MTNMoney.Empty(),
	)
	r.register(
		NewWave(cfg.Wave.APIKey, cfg.Wave.APISecret, cfg.ProviderTimeout),
		cfg.SandboxMode || cfg.Wave.Empty(),
	)

	return r
}

func (r *Registry) register(p Provider, sandbox bool) {
	if sandbox {
		r.providers[p.Name()] = NewSandbox(p)
		return
	}
	r.providers[p.Name()] = p
}

// Get returns the provider serving the given payment method.
func (r *Registry) Get(method string) (Provider, error) {
	p, ok := r.providers[method]
	if !ok {
		return nil, apperror.ErrUnknownProvider
	}
	return p, nil
}

// ForWebhook returns the provider addressed by a webhook path segment such
// as "orange" or "mtn".
func (r *Registry) ForWebhook(name string) (Provider, error) {
	method, ok := webhookNames[strings.ToLower(name)]
	if !ok {
		return nil, apperror.ErrUnknownProvider
	}
	return r.Get(method)
}
