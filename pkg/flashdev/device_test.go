package flashdev

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDevicePersistAndMountRoundTrip(t *testing.T) {
	partition := Partition{Start: 0, End: 31}
	d, err := NewDevice(partition, Attrs{DeviceType: DeviceTypeEmulated}, nil, nil)
	require.NoError(t, err)

	idx, err := d.Tree.AllocSlot()
	require.NoError(t, err)
	d.Tree.InsertDir(idx, 1, 0, 0, 1)

	var buf bytes.Buffer
	sink := NewFileSink(&buf)
	require.NoError(t, d.Persist(1, sink.Sink()))

	source, err := NewFileSource(&buf)
	require.NoError(t, err)
	err = d.Mount(1, source.Source())
	require.NoError(t, err)

	require.EqualValues(t, 1, d.Tree.DirCount())
	_, n, err := d.Tree.LookupDirBySerial(1)
	require.NoError(t, err)
	require.Equal(t, uint16(1), n.Block)
}

func TestNewDeviceRejectsEmptyPartition(t *testing.T) {
	_, err := NewDevice(Partition{Start: 10, End: 5}, Attrs{}, nil, nil)
	require.Error(t, err)
}

func TestRegistryRegisterLookupUnregister(t *testing.T) {
	r := NewRegistry()
	d, err := NewDevice(Partition{Start: 0, End: 7}, Attrs{}, nil, nil)
	require.NoError(t, err)

	require.NoError(t, r.Register(d))
	require.Error(t, r.Register(d)) // duplicate volume id

	got, ok := r.Lookup(d.Attrs.VolumeID.String())
	require.True(t, ok)
	require.Same(t, d, got)

	count := 0
	r.Range(func(*Device) bool {
		count++
		return true
	})
	require.Equal(t, 1, count)

	r.Unregister(d.Attrs.VolumeID.String())
	_, ok = r.Lookup(d.Attrs.VolumeID.String())
	require.False(t, ok)
}
