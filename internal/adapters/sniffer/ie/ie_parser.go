// Package ie walks 802.11 management frames and their information elements.
// Input is attacker-controlled radio data: every walk stops at the first
// element whose declared length runs past the end of the buffer.
package ie

import (
	"errors"
)

// Common IE Tags
const (
	TagSSID           = 0
	TagRates          = 1
	TagDSParameterSet = 3
	TagTIM            = 5
	TagRSN            = 48
	TagExtendedRates  = 50
	TagVendorSpecific = 221 // 0xDD
)

// Errors
var (
	ErrMalformedIE = errors.New("malformed information element")
	ErrIENotFound  = errors.New("information element not found")
	ErrShortFrame  = errors.New("frame shorter than management header")
	ErrNotMgmt     = errors.New("not a management frame")
)

// Walk calls fn for each element of data in order. It returns ErrMalformedIE
// as soon as a header or a declared length would read past len(data); fn is
// never called for that element. fn may return false to stop early.
func Walk(data []byte, fn func(id int, val []byte) bool) error {
	offset := 0
	limit := len(data)

	for offset < limit {
		// Needs at least 2 bytes (ID and Length)
		if offset+2 > limit {
			return ErrMalformedIE
		}

		id := int(data[offset])
		length := int(data[offset+1])
		offset += 2

		if offset+length > limit {
			return ErrMalformedIE
		}

		if !fn(id, data[offset:offset+length]) {
			return nil
		}
		offset += length
	}
	return nil
}

// Find returns the value of the first element with the given ID.
func Find(data []byte, targetID int) ([]byte, error) {
	var result []byte
	found := false
	err := Walk(data, func(id int, val []byte) bool {
		if id == targetID {
			result, found = val, true
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrIENotFound
	}
	return result, nil
}

// ParseSSID extracts the SSID element as raw bytes. Only a zero-length SSID
// is the wildcard and yields ""; NUL bytes are kept.
func ParseSSID(data []byte) (string, error) {
	val, err := Find(data, TagSSID)
	if err != nil {
		return "", err
	}
	return string(val), nil
}

// IsHidden reports whether a beaconed ssid hides the network name: empty or
// made only of NUL bytes.
func IsHidden(ssid string) bool {
	for i := 0; i < len(ssid); i++ {
		if ssid[i] != 0x00 {
			return false
		}
	}
	return true
}

// ParseChannel extracts the channel from the DS Parameter Set (Tag 3).
func ParseChannel(data []byte) (int, error) {
	val, err := Find(data, TagDSParameterSet)
	if err != nil {
		return 0, err
	}
	if len(val) < 1 {
		return 0, ErrMalformedIE
	}
	return int(val[0]), nil
}
