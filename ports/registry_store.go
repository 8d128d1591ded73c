package ports

import (
	"context"

	"qaebench/domain/estimation"
)

// RegistryStore saves and loads curve registries. A round trip must keep
// labels, their order and every value exactly.
type RegistryStore interface {
	Save(ctx context.Context, path string, reg estimation.Registry) error
	Load(ctx context.Context, path string) (estimation.Registry, error)
}
