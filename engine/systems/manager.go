package systems

import (
	"github.com/spaghettifunk/strata/engine/core"
	"github.com/spaghettifunk/strata/engine/layers"
	"github.com/spaghettifunk/strata/engine/sink"
)

type SystemManagerConfig struct {
	// LayerStackPath is a toml or yaml layer stack. Empty selects the
	// built-in SKY130 stack.
	LayerStackPath string
	// Workers above 1 process cells in parallel.
	Workers   int
	Processor ProcessorConfig
}

type SystemManager struct {
	LayerStack *layers.Stack
	Processor  *Processor
	jobSystem  *JobSystem
}

func NewSystemManager(config *SystemManagerConfig, out sink.Sink) (*SystemManager, error) {
	stack := layers.Default()
	if config.LayerStackPath != "" {
		s, err := layers.Load(config.LayerStackPath)
		if err != nil {
			return nil, err
		}
		stack = s
		core.LogInfo("layer stack loaded from %s (%d layers)", config.LayerStackPath, stack.Len())
	}

	var js *JobSystem
	if config.Workers > 1 {
		var err error
		js, err = NewJobSystem(config.Workers, config.Workers*4)
		if err != nil {
			return nil, err
		}
	}

	p, err := NewProcessor(config.Processor, stack, out, js)
	if err != nil {
		if js != nil {
			_ = js.Shutdown()
		}
		return nil, err
	}

	return &SystemManager{
		LayerStack: stack,
		Processor:  p,
		jobSystem:  js,
	}, nil
}

func (sm *SystemManager) Shutdown() error {
	if sm.jobSystem != nil {
		if err := sm.jobSystem.Shutdown(); err != nil {
			return err
		}
	}
	return nil
}
