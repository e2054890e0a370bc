package main

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/vorteil/flashtree/pkg/flashdev"
)

const taskID uint64 = 1

// openOrCreateDevice loads a device's persisted tree from path, or -- if
// the file doesn't exist yet -- creates a fresh empty one sized from the
// config-derived partition. Mirrors the fall-back-to-empty policy
// flashdev.Device.Mount already applies to a failed deserialize.
func openOrCreateDevice(path string) (*flashdev.Device, error) {
	partition := flashdev.Partition{
		Start: uint16(viper.GetInt("partition.start")),
		End:   uint16(viper.GetInt("partition.end")),
	}

	d, err := flashdev.NewDevice(partition, flashdev.Attrs{DeviceType: flashdev.DeviceTypeEmulated}, nil, log)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return d, nil
		}
		return nil, fmt.Errorf("opening state file: %w", err)
	}
	defer f.Close()

	source, err := flashdev.NewFileSource(f)
	if err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	if err := d.Mount(taskID, source.Source()); err != nil {
		log.Warnf("state file failed to deserialize, starting from an empty tree: %v", err)
	}
	return d, nil
}

func saveDevice(d *flashdev.Device, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating state file: %w", err)
	}
	defer f.Close()

	sink := flashdev.NewFileSink(f)
	return d.Persist(taskID, sink.Sink())
}
