package payment

import (
	"context"
	"fmt"
	"sync"
)

// Dispatcher resolves a provider identifier to its adapter and delegates
// the shared contract. Adapters are built lazily on first use so a missing
// credential for a provider nobody selects does not stop the service from
// starting. It is the only place that knows every provider.
type Dispatcher struct {
	mu       sync.Mutex
	builders map[string]func() (Provider, error)
	cache    map[string]Provider
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		builders: make(map[string]func() (Provider, error)),
		cache:    make(map[string]Provider),
	}
}

// Register installs a lazily-invoked constructor for a provider name.
func (d *Dispatcher) Register(name string, build func() (Provider, error)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.builders[name] = build
}

// Get returns the adapter for name, constructing it on first use.
func (d *Dispatcher) Get(name string) (Provider, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.cache[name]; ok {
		return p, nil
	}
	build, ok := d.builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	p, err := build()
	if err != nil {
		return nil, fmt.Errorf("construct provider %q: %w", name, err)
	}
	d.cache[name] = p
	return p, nil
}

func (d *Dispatcher) CreateOrder(ctx context.Context, cfg Config) (*Result, error) {
	p, err := d.Get(cfg.Provider)
	if err != nil {
		return nil, err
	}
	return p.CreateOrder(ctx, cfg)
}

func (d *Dispatcher) VerifyPayment(ctx context.Context, provider, orderID, paymentID, signature string) (*Verification, error) {
	p, err := d.Get(provider)
	if err != nil {
		return nil, err
	}
	return p.VerifyPayment(ctx, orderID, paymentID, signature)
}

func (d *Dispatcher) ProcessWebhook(ctx context.Context, payload WebhookPayload) error {
	p, err := d.Get(payload.Provider)
	if err != nil {
		return err
	}
	return p.ProcessWebhook(ctx, payload)
}
