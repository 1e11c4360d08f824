package slotnvm

import (
	"github.com/pkg/errors"

	"github.com/fmueller/slotnvm/cluster"
	"github.com/fmueller/slotnvm/placement"
)

// Config describes the fixed, construction-time layout of a Store. It
// has no analog to a running SlotNVM instance's mutable state (the used-
// cluster/available-slot index); that's rebuilt fresh by Begin on every
// process start, the same way the original template parameters fixed the
// layout at compile time and left recovery to begin().
type Config struct {
	// ClusterSize is C, the cluster size in bytes, 7..256. Typical
	// values are 16, 32, 64, 128, 256; see the preset package for
	// ready-made configurations at these sizes.
	ClusterSize int
	// CRC is the injected CRC-8 step function. Nil disables CRC mode,
	// freeing up one extra payload byte per cluster at the cost of
	// losing the ability to detect a torn write within a cluster's
	// payload.
	CRC cluster.CRCFunc
	// Provision is the number of bytes that must always stay free so
	// that any slot already fitting within Provision bytes can always
	// be rewritten without first needing other slots' data to be
	// erased. Rounded up to the next multiple of a cluster's payload
	// capacity.
	Provision int
	// LastSlot is the highest usable slot number. Zero means "as many
	// slots as there are clusters, capped at 250"; any other value must
	// be at most 250, and Validate rejects larger ones.
	LastSlot uint8
	// Placement picks the starting cluster a write's allocation probes
	// from. Nil defaults to placement.Sequential{}, reproducing the
	// original implementation's no-wear-leveling behavior.
	Placement placement.Source
}

// Validate checks that the configuration satisfies the bounds the format
// requires, independent of any device.
func (cfg Config) Validate() error {
	cc := cluster.Config{Size: cfg.ClusterSize, CRC: cfg.CRC}
	if err := cc.Validate(); err != nil {
		return err
	}
	if cfg.LastSlot > cluster.MaxSlotNo {
		return errors.Errorf("last slot must be at most %d, got %d", cluster.MaxSlotNo, cfg.LastSlot)
	}
	if cfg.Provision < 0 {
		return errors.Errorf("provision must not be negative, got %d", cfg.Provision)
	}
	return nil
}

// resolved pairs a validated Config with the device-dependent quantities
// (cluster count, slot range, provision in whole clusters) computed once
// at Open time.
type resolved struct {
	cc        cluster.Config
	nClusters int
	firstSlot uint8
	lastSlot  uint8
	provision int
	placement placement.Source
}

func resolve(cfg Config, deviceSize int) (resolved, error) {
	if err := cfg.Validate(); err != nil {
		return resolved{}, err
	}

	cc := cluster.Config{Size: cfg.ClusterSize, CRC: cfg.CRC}
	nClusters := deviceSize / cfg.ClusterSize
	if nClusters < 1 {
		return resolved{}, errors.Errorf("device size %d is too small for cluster size %d", deviceSize, cfg.ClusterSize)
	}
	if nClusters > 256 {
		return resolved{}, errors.Errorf("device holds %d clusters, at most 256 are supported; increase cluster size", nClusters)
	}

	lastSlot := cfg.LastSlot
	if lastSlot == 0 {
		lastSlot = uint8(nClusters)
		if nClusters > int(cluster.MaxSlotNo) {
			lastSlot = cluster.MaxSlotNo
		}
	} else if lastSlot > cluster.MaxSlotNo {
		lastSlot = cluster.MaxSlotNo
	}

	u := cc.UserDataSize()
	provision := ((cfg.Provision + u - 1) / u) * u
	if 2*provision > u*nClusters {
		return resolved{}, errors.Errorf("provision must be at most half of available user data")
	}

	src := cfg.Placement
	if src == nil {
		src = placement.Sequential{}
	}

	return resolved{
		cc:        cc,
		nClusters: nClusters,
		firstSlot: cluster.FirstSlotNo,
		lastSlot:  lastSlot,
		provision: provision,
		placement: src,
	}, nil
}
