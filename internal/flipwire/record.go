package flipwire

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed indicates a payload that does not parse as a flip record.
// All parse failures wrap this sentinel; match with errors.Is.
var ErrMalformed = errors.New("flipwire: malformed record")

// Record is one decoded flip payload.
//
// Pics holds the image references exactly as carried on the wire, in wire
// order. Orders holds one integer sequence per candidate ordering of those
// images. Both are always non-nil on a successful parse.
type Record struct {
	Pics   [][]byte
	Orders [][]int
}

// DecodeHex converts a hex payload string (with or without a 0x prefix) into
// raw bytes.
func DecodeHex(s string) ([]byte, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return raw, nil
}

// ParseHex decodes a hex payload string and parses the resulting record.
func ParseHex(s string) (Record, error) {
	raw, err := DecodeHex(s)
	if err != nil {
		return Record{}, err
	}
	return Parse(raw)
}

// Parse decodes raw bytes as a flip record.
//
// The top level must be a list of exactly two fields: the image list and the
// order list. Trailing bytes after the record are malformed.
func Parse(raw []byte) (Record, error) {
	top, rest, err := parseItem(raw)
	if err != nil {
		return Record{}, err
	}
	if len(rest) != 0 {
		return Record{}, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(rest))
	}
	if !top.isList {
		return Record{}, fmt.Errorf("%w: top-level field is not a list", ErrMalformed)
	}
	if len(top.list) != 2 {
		return Record{}, fmt.Errorf("%w: want 2 top-level fields, have %d", ErrMalformed, len(top.list))
	}

	pics, err := parsePics(top.list[0])
	if err != nil {
		return Record{}, err
	}
	orders, err := parseOrders(top.list[1])
	if err != nil {
		return Record{}, err
	}
	return Record{Pics: pics, Orders: orders}, nil
}

// parsePics reads field 0: a list of byte strings, kept verbatim.
func parsePics(field item) ([][]byte, error) {
	if !field.isList {
		return nil, fmt.Errorf("%w: image field is not a list", ErrMalformed)
	}
	pics := make([][]byte, len(field.list))
	for i, el := range field.list {
		if el.isList {
			return nil, fmt.Errorf("%w: image %d is not a byte string", ErrMalformed, i)
		}
		pics[i] = el.str
	}
	return pics, nil
}

// parseOrders reads field 1: a list of order lists. Each order element is a
// byte field of length zero or one; an empty field means 0. Longer fields
// keep their first byte, matching the producer's historical behavior.
func parseOrders(field item) ([][]int, error) {
	if !field.isList {
		return nil, fmt.Errorf("%w: order field is not a list", ErrMalformed)
	}
	orders := make([][]int, len(field.list))
	for i, ord := range field.list {
		if !ord.isList {
			return nil, fmt.Errorf("%w: order %d is not a list", ErrMalformed, i)
		}
		seq := make([]int, len(ord.list))
		for j, el := range ord.list {
			if el.isList {
				return nil, fmt.Errorf("%w: order %d element %d is not a byte field", ErrMalformed, i, j)
			}
			if len(el.str) > 0 {
				seq[j] = int(el.str[0])
			}
		}
		orders[i] = seq
	}
	return orders, nil
}

// item is one parsed wire field: either a byte string or a list of items.
type item struct {
	isList bool
	str    []byte
	list   []item
}

const (
	shortStringBase = 0x80 // 0x80..0xB7: string of 0..55 bytes
	longStringBase  = 0xB7 // 0xB8..0xBF: length-of-length prefixed string
	shortListBase   = 0xC0 // 0xC0..0xF7: list payload of 0..55 bytes
	longListBase    = 0xF7 // 0xF8..0xFF: length-of-length prefixed list
	shortLengthMax  = 55
)

// parseItem reads one item from the front of data and returns the remainder.
func parseItem(data []byte) (item, []byte, error) {
	if len(data) == 0 {
		return item{}, nil, fmt.Errorf("%w: unexpected end of input", ErrMalformed)
	}

	tag := data[0]
	switch {
	case tag < shortStringBase:
		// A byte below 0x80 is its own one-byte string.
		return item{str: data[:1]}, data[1:], nil

	case tag <= longStringBase:
		length := int(tag - shortStringBase)
		payload, rest, err := takePayload(data[1:], length)
		if err != nil {
			return item{}, nil, err
		}
		if length == 1 && payload[0] < shortStringBase {
			return item{}, nil, fmt.Errorf("%w: single byte 0x%02x must be encoded as itself", ErrMalformed, payload[0])
		}
		return item{str: payload}, rest, nil

	case tag < shortListBase:
		length, body, err := takeLongLength(data[1:], int(tag-longStringBase))
		if err != nil {
			return item{}, nil, err
		}
		payload, rest, err := takePayload(body, length)
		if err != nil {
			return item{}, nil, err
		}
		return item{str: payload}, rest, nil

	case tag <= longListBase:
		payload, rest, err := takePayload(data[1:], int(tag-shortListBase))
		if err != nil {
			return item{}, nil, err
		}
		elems, err := parseList(payload)
		if err != nil {
			return item{}, nil, err
		}
		return item{isList: true, list: elems}, rest, nil

	default:
		length, body, err := takeLongLength(data[1:], int(tag-longListBase))
		if err != nil {
			return item{}, nil, err
		}
		payload, rest, err := takePayload(body, length)
		if err != nil {
			return item{}, nil, err
		}
		elems, err := parseList(payload)
		if err != nil {
			return item{}, nil, err
		}
		return item{isList: true, list: elems}, rest, nil
	}
}

// parseList parses a list payload into its items, consuming it fully.
func parseList(payload []byte) ([]item, error) {
	elems := []item{}
	for len(payload) > 0 {
		el, rest, err := parseItem(payload)
		if err != nil {
			return nil, err
		}
		elems = append(elems, el)
		payload = rest
	}
	return elems, nil
}

// takePayload splits length bytes off the front of data.
func takePayload(data []byte, length int) ([]byte, []byte, error) {
	if length > len(data) {
		return nil, nil, fmt.Errorf("%w: need %d payload bytes, have %d", ErrMalformed, length, len(data))
	}
	return data[:length], data[length:], nil
}

// takeLongLength reads a big-endian length of lengthSize bytes and returns it
// with the remaining data. Long lengths must be minimal: no leading zero byte
// and a value that would not fit the short form.
func takeLongLength(data []byte, lengthSize int) (int, []byte, error) {
	if lengthSize > len(data) {
		return 0, nil, fmt.Errorf("%w: truncated length prefix", ErrMalformed)
	}
	if lengthSize > 8 {
		return 0, nil, fmt.Errorf("%w: length prefix of %d bytes", ErrMalformed, lengthSize)
	}
	if data[0] == 0 {
		return 0, nil, fmt.Errorf("%w: length prefix has leading zero", ErrMalformed)
	}
	var length uint64
	for _, b := range data[:lengthSize] {
		length = length<<8 | uint64(b)
	}
	if length <= shortLengthMax {
		return 0, nil, fmt.Errorf("%w: length %d must use the short form", ErrMalformed, length)
	}
	const maxInt = int(^uint(0) >> 1)
	if length > uint64(maxInt) {
		return 0, nil, fmt.Errorf("%w: length %d overflows", ErrMalformed, length)
	}
	return int(length), data[lengthSize:], nil
}
