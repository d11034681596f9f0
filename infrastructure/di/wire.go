//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"flowcanvas/infrastructure/config"
)

// InitializeContainer creates a fully wired container.
func InitializeContainer(cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
