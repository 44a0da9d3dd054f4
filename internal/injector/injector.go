//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/simcore/internal/config"
	"github.com/zeusync/simcore/internal/core/events/bus"
	"github.com/zeusync/simcore/internal/core/observability/log"
	"github.com/zeusync/simcore/internal/core/sim/request"
	"github.com/zeusync/simcore/internal/runner"
)

func ProvideLogger() *log.Logger {
	wire.Build(log.Provide)
	return nil
}

func ProvideDispatcher(cfg config.Config) *request.Dispatcher {
	wire.Build(providers)
	return nil
}

func ProvideRunner(cfg config.Config) *runner.Runner {
	wire.Build(providers)
	return nil
}

var providers = wire.NewSet(
	log.Provide,
	wire.Bind(new(log.Log), new(*log.Logger)),
	bus.New,
	dispatcherOptions,
	request.NewDispatcher,
	runnerDefaults,
	runnerOptions,
	runner.New,
)

func dispatcherOptions(cfg config.Config) []request.Option {
	return []request.Option{
		request.WithMode(cfg.Mode),
		request.WithWorldValidation(cfg.ValidateWorld),
		request.WithErrorDetail(cfg.ErrorDetail),
	}
}

func runnerDefaults(cfg config.Config) config.RunnerConfig { return cfg.Runner }

func runnerOptions() []runner.Option { return nil }
