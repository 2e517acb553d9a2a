package workflow

import (
	"fmt"

	"github.com/gnzdotmx/viralshorts/internal/mod"
	"github.com/gnzdotmx/viralshorts/internal/modules/discover"
	"github.com/gnzdotmx/viralshorts/internal/modules/download"
	"github.com/gnzdotmx/viralshorts/internal/modules/render"
	"github.com/gnzdotmx/viralshorts/internal/modules/score"
	"github.com/gnzdotmx/viralshorts/internal/modules/transcribe"
	"github.com/gnzdotmx/viralshorts/internal/modules/upload"
)

// NewRegistry returns a registry holding every pipeline module
func NewRegistry() (*mod.ModuleRegistry, error) {
	registry := mod.NewModuleRegistry()
	for _, m := range []mod.Module{
		discover.New(),
		download.New(),
		transcribe.New(),
		score.New(),
		render.New(),
		upload.New(),
	} {
		if err := registry.Register(m); err != nil {
			return nil, fmt.Errorf("failed to register %s module: %w", m.Name(), err)
		}
	}
	return registry, nil
}
