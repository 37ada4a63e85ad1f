package backend

import "sync"

// The process-wide provider. It is created by the first Shared call and lives
// until the process exits. Provider.Close releases its handle on shutdown.
var shared struct {
	mu       sync.Mutex
	provider *Provider
}

// Shared returns the process-wide Provider, creating it with factory and opts
// on first use. Later calls ignore their arguments.
func Shared(factory Factory, opts ...ProviderOption) *Provider {
	shared.mu.Lock()
	defer shared.mu.Unlock()

	if shared.provider == nil {
		shared.provider = NewProvider(factory, opts...)
	}
	return shared.provider
}

// ResetShared discards the process-wide Provider. Intended for tests.
func ResetShared() {
	shared.mu.Lock()
	defer shared.mu.Unlock()
	shared.provider = nil
}
