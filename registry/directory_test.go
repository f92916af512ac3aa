package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uap-core/uap/entity"
)

func TestRegisterLookupUnregister(t *testing.T) {
	dir := NewDirectory()
	e := entity.NewLocalEntity("sensor-1", entity.KindDevice, []string{"sensor.temp:read"}, nil, nil, 0)
	defer e.Close()

	require.NoError(t, dir.Register(e))

	got, err := dir.Lookup("sensor-1")
	require.NoError(t, err)
	assert.Equal(t, "sensor-1", got.ID())

	require.NoError(t, dir.Unregister("sensor-1"))
	_, err = dir.Lookup("sensor-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegisterDuplicateFails(t *testing.T) {
	dir := NewDirectory()
	e := entity.NewLocalEntity("sensor-1", entity.KindDevice, nil, nil, nil, 0)
	defer e.Close()

	require.NoError(t, dir.Register(e))
	assert.ErrorIs(t, dir.Register(e), ErrAlreadyRegistered)
}

func TestFindByCapabilityAndType(t *testing.T) {
	dir := NewDirectory()
	sensor := entity.NewLocalEntity("sensor-1", entity.KindDevice, []string{"sensor.temp:read"}, nil, nil, 0)
	client := entity.NewLocalEntity("client-1", entity.KindClient, []string{"ui.display"}, nil, nil, 0)
	defer sensor.Close()
	defer client.Close()

	require.NoError(t, dir.Register(sensor))
	require.NoError(t, dir.Register(client))

	byCap := dir.FindByCapability("sensor.temp:read")
	require.Len(t, byCap, 1)
	assert.Equal(t, "sensor-1", byCap[0].ID())

	byType := dir.FindByType(entity.KindClient)
	require.Len(t, byType, 1)
	assert.Equal(t, "client-1", byType[0].ID())
}

func TestHeartbeatUpdatesLiveness(t *testing.T) {
	dir := NewDirectory()
	e := entity.NewLocalEntity("sensor-1", entity.KindDevice, nil, nil, nil, 0)
	defer e.Close()
	require.NoError(t, dir.Register(e))

	before := e.LastHeartbeat()
	time.Sleep(time.Millisecond)
	require.NoError(t, dir.Heartbeat("sensor-1"))
	assert.True(t, e.LastHeartbeat().After(before))
}

func TestStaleSweepEvictsSilentEntities(t *testing.T) {
	dir := NewDirectory(WithHeartbeatInterval(5 * time.Millisecond))
	e := entity.NewLocalEntity("sensor-1", entity.KindDevice, nil, nil, nil, 0)
	require.NoError(t, dir.Register(e))

	ctx, cancel := context.WithCancel(context.Background())
	dir.Start(ctx)
	defer cancel()

	require.Eventually(t, func() bool {
		_, err := dir.Lookup("sensor-1")
		return err != nil
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, dir.Stop())
}
