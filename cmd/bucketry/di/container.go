// Package di provides dependency injection for the bucketry CLI using
// samber/do v2.
package di

import (
	"fmt"

	"github.com/samber/do/v2"
)

// ConfigPathKey is the named key for the config path string.
const ConfigPathKey = "config.path"

// Container wraps the do.Injector with bucketry specific configuration.
type Container struct {
	injector *do.RootScope
}

// NewContainer creates and configures the DI container. The configPath
// parameter specifies the path to the client configuration file; empty means
// defaults (inert engine unless env-provided credentials appear in the file).
func NewContainer(configPath string) *Container {
	injector := do.New()

	do.ProvideNamedValue(injector, ConfigPathKey, configPath)
	RegisterSingletons(injector)

	return &Container{injector: injector}
}

// Injector returns the underlying do.Injector for service resolution.
func (c *Container) Injector() *do.RootScope {
	return c.injector
}

// Invoke resolves a service from the container.
func Invoke[T any](c *Container) (T, error) {
	return do.Invoke[T](c.injector)
}

// MustInvoke resolves a service from the container or panics.
// Use only during startup where errors are fatal.
func MustInvoke[T any](c *Container) T {
	return do.MustInvoke[T](c.injector)
}

// Shutdown tears down all registered services in reverse order. Services
// implementing the do.Shutdowner interface have their Shutdown method called.
func (c *Container) Shutdown() error {
	report := c.injector.Shutdown()
	if report != nil && !report.Succeed {
		return fmt.Errorf("shutdown failed: %s", report.Error())
	}
	return nil
}
