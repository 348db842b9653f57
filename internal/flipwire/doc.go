// Package flipwire decodes the binary payload format that flip content is
// published in.
//
// A flip payload is a hex string carrying one length-prefixed record: a
// two-field list whose first field is the ordered image set (byte strings,
// kept verbatim) and whose second field is the list of candidate permutation
// orders (lists of small unsigned integers, each carried as a zero-or-one
// byte field).
//
// The format is a fixed external encoding. This package only decodes it;
// payloads are never produced on this side.
//
// Framing rules:
//   - a single byte below 0x80 is itself a one-byte string
//   - 0x80+n prefixes an n-byte string, n <= 55
//   - 0xB7+k prefixes a k-byte big-endian length, then the string
//   - 0xC0+n prefixes an n-byte list payload, n <= 55
//   - 0xF7+k prefixes a k-byte big-endian length, then the list payload
//
// Lengths must be minimally encoded. Anything else - truncated input,
// padded lengths, trailing bytes, wrong field shapes - is malformed and
// reported via ErrMalformed.
package flipwire
