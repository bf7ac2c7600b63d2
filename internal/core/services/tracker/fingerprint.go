package tracker

import (
	"github.com/lcalzada-xor/wkarma/internal/adapters/sniffer/ie"
	"github.com/lcalzada-xor/wkarma/internal/core/domain"
)

// fingerprintValueBytes is how much of each element value feeds the hash.
const fingerprintValueBytes = 4

// Fingerprint derives a client identity from the information elements of a
// probe request. The hash is order dependent and covers tag, length and the
// first four value bytes of every element except SSID and DS parameter set,
// which vary per probe rather than per device. The source address never
// participates. A malformed tail ends the hash at the last complete element.
func Fingerprint(ies []byte) domain.Fingerprint {
	var h uint32
	_ = ie.Walk(ies, func(id int, val []byte) bool {
		if id == ie.TagSSID || id == ie.TagDSParameterSet {
			return true
		}
		h = h*31 + uint32(id)
		h = h*31 + uint32(len(val))
		n := len(val)
		if n > fingerprintValueBytes {
			n = fingerprintValueBytes
		}
		for _, b := range val[:n] {
			h = h*31 + uint32(b)
		}
		return true
	})
	return domain.Fingerprint(h)
}
