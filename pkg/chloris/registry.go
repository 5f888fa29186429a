package chloris

import "sync"

// The backend registry lets provider packages install themselves as the
// default source of backends via an init function, so that importing a
// provider package is all the wiring a caller needs.

var (
	registryMu     sync.RWMutex
	defaultFactory BackendFactory
)

// RegisterBackendFactory installs the default backend factory used by New
// when no explicit backends or factory are supplied. Later registrations
// replace earlier ones.
func RegisterBackendFactory(f BackendFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	defaultFactory = f
}

func registeredBackendFactory() BackendFactory {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return defaultFactory
}
