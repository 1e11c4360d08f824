// Package preset collects ready-made slotnvm.Config values at the
// cluster sizes spec.md calls out as typical — 16, 32, 64, 128 and 256
// bytes — in both CRC and no-CRC variants, for callers who don't need to
// reason about the layout tradeoffs themselves.
package preset

import "github.com/fmueller/slotnvm"

// CRC8 is the polynomial used by every CRC-enabled preset in this
// package: the CRC-8/MAXIM (Dallas 1-Wire) polynomial 0x31, reflected,
// the same one Arduino's OneWire library ships and a plausible default
// for the 8-bit microcontrollers this format targets.
func CRC8(crc, b byte) byte {
	crc ^= b
	for i := 0; i < 8; i++ {
		if crc&0x01 != 0 {
			crc = (crc >> 1) ^ 0x8C
		} else {
			crc >>= 1
		}
	}
	return crc
}

func withCRC(clusterSize int) slotnvm.Config {
	return slotnvm.Config{ClusterSize: clusterSize, CRC: CRC8}
}

func withoutCRC(clusterSize int) slotnvm.Config {
	return slotnvm.Config{ClusterSize: clusterSize}
}

// Cluster16, Cluster32, Cluster64, Cluster128 and Cluster256 are
// CRC-protected configurations at the named cluster size.
var (
	Cluster16  = withCRC(16)
	Cluster32  = withCRC(32)
	Cluster64  = withCRC(64)
	Cluster128 = withCRC(128)
	Cluster256 = withCRC(256)
)

// Cluster16NoCRC, Cluster32NoCRC, Cluster64NoCRC, Cluster128NoCRC and
// Cluster256NoCRC trade away torn-write detection within a cluster's
// payload for one extra byte of usable data per cluster.
var (
	Cluster16NoCRC  = withoutCRC(16)
	Cluster32NoCRC  = withoutCRC(32)
	Cluster64NoCRC  = withoutCRC(64)
	Cluster128NoCRC = withoutCRC(128)
	Cluster256NoCRC = withoutCRC(256)
)
