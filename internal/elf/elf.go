// Package elf validates and loads the tiny program header format
// spec.md §6 describes: a 40-byte-minimum regular file beginning with
// the ELF magic, entry address in bytes 24..27. It does not implement
// the rest of the ELF object format (sections, relocations,
// dynamic linking) — the kernel only ever loads one flat text image
// per process, per spec.md §1's Non-goals.
package elf

import (
	"encoding/binary"
	"errors"
)

const (
	MinHeaderSize = 40
	EntryOffset   = 24
)

var Magic = [4]byte{0x7F, 'E', 'L', 'F'}

var (
	ErrTooShort   = errors.New("elf: file shorter than header")
	ErrBadMagic   = errors.New("elf: bad magic")
)

// Header is the subset of the ELF header this loader cares about.
type Header struct {
	Entry uint32
}

// Validate checks the magic and minimum length and extracts the entry
// point, per spec.md §4.3/§6. It does not validate anything past byte
// 27; a "file type regular" check is the VFS shim's job (it's the one
// that knows the dentry type).
func Validate(image []byte) (Header, error) {
	if len(image) < MinHeaderSize {
		return Header{}, ErrTooShort
	}
	var magic [4]byte
	copy(magic[:], image[0:4])
	if magic != Magic {
		return Header{}, ErrBadMagic
	}
	entry := binary.LittleEndian.Uint32(image[EntryOffset : EntryOffset+4])
	return Header{Entry: entry}, nil
}
