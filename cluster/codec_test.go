package cluster

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// xorFold is a trivial CRC-8 stand-in used throughout these tests, matching
// the one used in the scenario suite: crc' = crc ^ b.
func xorFold(crc, b byte) byte {
	return crc ^ b
}

func crcConfig(size int) Config {
	return Config{Size: size, CRC: xorFold}
}

func noCRCConfig(size int) Config {
	return Config{Size: size}
}

func TestConfigSizes(t *testing.T) {
	requireT := require.New(t)

	c := crcConfig(8)
	requireT.Equal(2, c.UserDataSize())
	requireT.Equal(6, c.OffsetCRC())
	requireT.Equal(7, c.OffsetEndMarker())
	requireT.EqualValues(EndMarkerCRC, c.EndMarker())
	requireT.Equal(6, c.PayloadEnd())

	nc := noCRCConfig(8)
	requireT.Equal(3, nc.UserDataSize())
	requireT.Equal(6, nc.OffsetCRC())
	requireT.Equal(7, nc.PayloadEnd())
	requireT.EqualValues(EndMarkerNoCRC, nc.EndMarker())
}

func TestValidate(t *testing.T) {
	requireT := require.New(t)

	requireT.NoError(Config{Size: 7}.Validate())
	requireT.NoError(Config{Size: 256}.Validate())
	requireT.Error(Config{Size: 6}.Validate())
	requireT.Error(Config{Size: 257}.Validate())
}

func TestEncodeDecodeRoundTripCRC(t *testing.T) {
	requireT := require.New(t)

	c := crcConfig(8)
	buf := make([]byte, c.Size)
	h := Header{SlotNo: 1, Age: 2, Start: true, Last: false, Link: 3, Length: 1}
	c.EncodeBody(buf, h, []byte{0xB1, 0xB2})
	buf[c.OffsetEndMarker()] = c.EndMarker()

	gotH, payload, err := c.Decode(buf)
	requireT.NoError(err)
	requireT.Equal(h, gotH)
	requireT.Equal([]byte{0xB1, 0xB2}, payload)
}

func TestDecodeRejectsBadEndMarker(t *testing.T) {
	requireT := require.New(t)

	c := crcConfig(8)
	buf := make([]byte, c.Size)
	c.EncodeBody(buf, Header{SlotNo: 1, Start: true, Last: true, Link: 1, Length: 1}, []byte{1, 2})
	buf[c.OffsetEndMarker()] = 0xFF

	_, _, err := c.Decode(buf)
	requireT.ErrorIs(err, ErrInvalid)
}

func TestDecodeRejectsBadCRC(t *testing.T) {
	requireT := require.New(t)

	c := crcConfig(8)
	buf := make([]byte, c.Size)
	c.EncodeBody(buf, Header{SlotNo: 1, Start: true, Last: true, Link: 1, Length: 1}, []byte{1, 2})
	buf[c.OffsetEndMarker()] = c.EndMarker()
	buf[c.OffsetCRC()] ^= 0xFF

	_, _, err := c.Decode(buf)
	requireT.ErrorIs(err, ErrInvalid)
}

func TestDecodeRejectsOversizedNonStartLength(t *testing.T) {
	requireT := require.New(t)

	c := crcConfig(8)
	buf := make([]byte, c.Size)
	c.EncodeBody(buf, Header{SlotNo: 1, Start: false, Last: true, Link: 1, Length: 200}, []byte{1, 2})
	buf[c.OffsetEndMarker()] = c.EndMarker()

	_, _, err := c.Decode(buf)
	requireT.ErrorIs(err, ErrInvalid)
}

func TestNoCRCModeUsesExtraPayloadByte(t *testing.T) {
	requireT := require.New(t)

	c := noCRCConfig(8)
	buf := make([]byte, c.Size)
	c.EncodeBody(buf, Header{SlotNo: 1, Start: true, Last: true, Link: 1, Length: 2}, []byte{0xAA, 0xBB, 0xCC})
	buf[c.OffsetEndMarker()] = c.EndMarker()

	h, payload, err := c.Decode(buf)
	requireT.NoError(err)
	requireT.True(h.Start)
	requireT.Equal([]byte{0xAA, 0xBB, 0xCC}, payload)
}

func TestFlagsRoundTrip(t *testing.T) {
	requireT := require.New(t)

	for age := uint8(0); age < 4; age++ {
		for _, start := range []bool{true, false} {
			for _, last := range []bool{true, false} {
				h := Header{Age: age, Start: start, Last: last}
				b := h.flags()
				gotAge, gotStart, gotLast := DecodeFlags(b)
				requireT.Equal(age, gotAge)
				requireT.Equal(start, gotStart)
				requireT.Equal(last, gotLast)
				requireT.Zero(b & FlagReserved)
			}
		}
	}
}

func TestMaxChainClusters(t *testing.T) {
	requireT := require.New(t)

	requireT.Equal(128, crcConfig(8).MaxChainClusters())
}
