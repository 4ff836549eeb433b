// internal/storage/storage_test.go
package storage_test

import (
	"testing"

	"github.com/OCAP2/dockyard/internal/storage"
	"github.com/OCAP2/dockyard/pkg/core"
	"github.com/stretchr/testify/assert"
)

var _ storage.Backend = storage.Discard{}

func TestDiscard(t *testing.T) {
	var b storage.Backend = storage.Discard{}

	assert.NoError(t, b.Init())
	assert.NoError(t, b.StartSession(&core.Session{}))
	assert.NoError(t, b.RecordModuleEvent(&core.ModuleEvent{}))
	assert.NoError(t, b.RecordApproachSample(&core.ApproachSample{}))
	assert.NoError(t, b.RecordApproachTrack(&core.ApproachTrack{}))
	assert.NoError(t, b.RecordTopology(&core.TopologySnapshot{}))
	assert.NoError(t, b.RecordNotification(&core.Notification{}))
	assert.NoError(t, b.EndSession())
	assert.NoError(t, b.Close())
}
