package cmd

import (
	"log/slog"

	"github.com/spinscribe/spinscribe/pkg/registry"
)

// NewRegistry builds the definition catalog with the builtin content
// workflow types registered.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)
	registry.RegisterBuiltinDefinitions(reg)

	return reg
}
