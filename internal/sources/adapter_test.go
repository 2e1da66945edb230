package sources

import (
	"context"
	"testing"

	"github.com/maxaizer/tender-monitor/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticAdapter struct {
	source entities.Source
}

func (a staticAdapter) Source() entities.Source { return a.source }

func (a staticAdapter) Fetch(context.Context, []string, int) ([]entities.Candidate, error) {
	return nil, nil
}

func Test_Registry_RegisterAndGet(t *testing.T) {
	registry, err := NewRegistry(staticAdapter{entities.SamGov}, staticAdapter{entities.Dodge})
	require.NoError(t, err)

	adapter, err := registry.Get(entities.SamGov)
	require.NoError(t, err)
	assert.Equal(t, entities.SamGov, adapter.Source())

	assert.Equal(t, []entities.Source{entities.Dodge, entities.SamGov}, registry.Sources())
}

func Test_Registry_RejectsUnknownAndDuplicateSources(t *testing.T) {
	_, err := NewRegistry(staticAdapter{"bidnet"})
	assert.ErrorIs(t, err, entities.ErrUnknownSource)

	_, err = NewRegistry(staticAdapter{entities.SamGov}, staticAdapter{entities.SamGov})
	assert.Error(t, err)

	registry, err := NewRegistry()
	require.NoError(t, err)

	_, err = registry.Get("bidnet")
	assert.ErrorIs(t, err, entities.ErrUnknownSource)

	_, err = registry.Get(entities.ShovelsAI)
	assert.Error(t, err)
}
