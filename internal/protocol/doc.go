// Package protocol owns the game-state wire contract and its codec.
//
// Ownership boundary:
// - GameState broadcast record (controller -> participants)
// - ReturnData record (participants -> controller)
// - closed enumerations carried on the wire
// - decode validation (length, magic, version, enum values)
//
// Byte order is little-endian for every multi-byte field. Records carry no
// padding; every offset is written explicitly.
package protocol
