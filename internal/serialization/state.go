// Package serialization provides the versioned binary encoding of evaluator
// configuration.
//
//	Format Structure:
//	  [4 bytes: Magic "RCON"]
//	  [4 bytes: Version (uint32 LE)]
//	  [4 bytes: Flags (uint32 LE)]
//
// Only configuration is persisted. Distribution parametrizations and gradient
// buffers are derived from the tensors of the next call and must never be
// written out, which rules out stale-state bugs after a reload.
package serialization

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Format constants.
const (
	MagicBytes    = "RCON"
	FormatVersion = 1
	stateSize     = 12
)

// Flags for the state encoding.
const (
	FlagSumReduction uint32 = 1 << 0 // bit 0: sum reduction (mean when unset)
)

// State is the persistent configuration of a loss evaluator.
type State struct {
	Reduction bool // true = sum reduction, false = mean reduction
}

// Write encodes s to w.
func Write(w io.Writer, s State) error {
	var buf [stateSize]byte
	copy(buf[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(buf[4:8], FormatVersion)

	var flags uint32
	if s.Reduction {
		flags |= FlagSumReduction
	}
	binary.LittleEndian.PutUint32(buf[8:12], flags)

	_, err := w.Write(buf[:])
	return err
}

// Read decodes a State from r, validating magic bytes and version.
func Read(r io.Reader) (State, error) {
	var buf [stateSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return State{}, ErrTruncated
		}
		return State{}, err
	}

	if string(buf[0:4]) != MagicBytes {
		return State{}, ErrInvalidMagic
	}
	if version := binary.LittleEndian.Uint32(buf[4:8]); version != FormatVersion {
		return State{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	flags := binary.LittleEndian.Uint32(buf[8:12])
	return State{Reduction: flags&FlagSumReduction != 0}, nil
}
