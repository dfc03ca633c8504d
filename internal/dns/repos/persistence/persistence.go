// Package persistence selects the durable backend for the zone collection.
package persistence

import (
	"fmt"

	"github.com/haukened/rr-zoned/internal/dns/common/clock"
	"github.com/haukened/rr-zoned/internal/dns/domain"
	"github.com/haukened/rr-zoned/internal/dns/repos/persistence/bolt"
	"github.com/haukened/rr-zoned/internal/dns/repos/persistence/yamlfile"
)

// Backend names a storage implementation.
type Backend string

const (
	BackendBolt Backend = "bolt"
	BackendFile Backend = "file"
)

// Store is the whole-collection load/save contract every backend satisfies.
type Store interface {
	LoadAll() ([]domain.Zone, error)
	SaveAll(zones []domain.Zone) error
	Close() error
}

// Open creates the backend named by backend at path.
func Open(backend Backend, path string, clk clock.Clock) (Store, error) {
	switch backend {
	case BackendBolt:
		s, err := bolt.New(path, clk)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendFile:
		return yamlfile.New(path), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", backend)
	}
}

// SupportedBackends lists the backends Open accepts.
func SupportedBackends() []Backend {
	return []Backend{BackendBolt, BackendFile}
}
