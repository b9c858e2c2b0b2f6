// Package fsimage reads the packed read-only filesystem image this
// kernel boots against: a 64-byte master entry, up to 63 64-byte
// directory entries, a dense inode array, and 4 KiB data blocks, per
// spec.md §6. Building the image (from the floppy, in the real
// machine) is the hal.FloppyController's job; this package only
// parses the bytes once they're in memory.
package fsimage

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	BlockSize    = 4096
	NameMax      = 32
	MaxDentries  = 63
	MasterSize   = 64
	DentrySize   = 64
	InodeHeader  = 4
	MaxDataBlock = 1023
	InodeSize    = InodeHeader + MaxDataBlock*4
)

// DentryType mirrors spec.md §6's {RTC=0, Directory=1, File=2}.
type DentryType uint32

const (
	TypeRTC DentryType = iota
	TypeDirectory
	TypeFile
)

type Dentry struct {
	Name  string
	Type  DentryType
	Inode uint32
}

// Image is a parsed, read-only view over the packed filesystem blob.
// It holds no copy of the data blocks beyond the original slice.
type Image struct {
	raw         []byte
	numDentries uint32
	numInodes   uint32
	numBlocks   uint32
	dentries    []Dentry
}

var (
	ErrTruncated  = errors.New("fsimage: truncated image")
	ErrNotFound   = errors.New("fsimage: name not found")
	ErrBadInode   = errors.New("fsimage: inode index out of range")
)

// Parse validates and indexes raw, which must be the whole image as
// loaded from the floppy.
func Parse(raw []byte) (*Image, error) {
	if len(raw) < MasterSize {
		return nil, ErrTruncated
	}
	img := &Image{raw: raw}
	img.numDentries = binary.LittleEndian.Uint32(raw[0:4])
	img.numInodes = binary.LittleEndian.Uint32(raw[4:8])
	img.numBlocks = binary.LittleEndian.Uint32(raw[8:12])
	if img.numDentries > MaxDentries {
		return nil, fmt.Errorf("fsimage: %d dentries exceeds max %d", img.numDentries, MaxDentries)
	}
	need := MasterSize + int(img.numDentries)*DentrySize
	if len(raw) < need {
		return nil, ErrTruncated
	}
	img.dentries = make([]Dentry, img.numDentries)
	for i := uint32(0); i < img.numDentries; i++ {
		off := MasterSize + int(i)*DentrySize
		img.dentries[i] = Dentry{
			Name:  nameFromBytes(raw[off : off+NameMax]),
			Type:  DentryType(binary.LittleEndian.Uint32(raw[off+NameMax : off+NameMax+4])),
			Inode: binary.LittleEndian.Uint32(raw[off+NameMax+4 : off+NameMax+8]),
		}
	}
	return img, nil
}

// nameFromBytes applies spec.md's "not null-terminated if exactly 32
// bytes" rule: trim trailing NULs, but a full 32-byte name with no NUL
// is kept whole.
func nameFromBytes(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func (img *Image) inodeOffset(inode uint32) int {
	return MasterSize + int(img.numDentries)*DentrySize + int(inode)*InodeSize
}

func (img *Image) blockOffset(block uint32) int {
	inodesEnd := MasterSize + int(img.numDentries)*DentrySize + int(img.numInodes)*InodeSize
	return inodesEnd + int(block)*BlockSize
}

// FileLength returns the byte length recorded in inode's header,
// letting a caller size a buffer before calling ReadData.
func (img *Image) FileLength(inode uint32) (uint32, error) {
	return img.inodeLength(inode)
}

// inodeLength returns the file length recorded in the inode header.
func (img *Image) inodeLength(inode uint32) (uint32, error) {
	if inode >= img.numInodes {
		return 0, ErrBadInode
	}
	off := img.inodeOffset(inode)
	if off+InodeHeader > len(img.raw) {
		return 0, ErrTruncated
	}
	return binary.LittleEndian.Uint32(img.raw[off : off+4]), nil
}

// ReadDentryByName linearly scans the directory entries, per spec.md
// §6.
func (img *Image) ReadDentryByName(name string) (Dentry, error) {
	for _, d := range img.dentries {
		if d.Name == name {
			return d, nil
		}
	}
	return Dentry{}, ErrNotFound
}

// ReadDentryByIndex supports directory listings (readdir-style reads
// on "."), indexed in the same order dentries appear in the image.
func (img *Image) ReadDentryByIndex(i int) (Dentry, bool) {
	if i < 0 || i >= len(img.dentries) {
		return Dentry{}, false
	}
	return img.dentries[i], true
}

func (img *Image) NumDentries() int { return len(img.dentries) }

// ReadData copies bytes [offset, offset+len(buf)) of inode's file into
// buf, walking across 4 KiB data-block boundaries, and returns the
// number of bytes actually copied, clamped to the file's length —
// exactly the contract spec.md §6 describes for read_data.
func (img *Image) ReadData(inode uint32, offset uint32, buf []byte) (int, error) {
	length, err := img.inodeLength(inode)
	if err != nil {
		return 0, err
	}
	if offset >= length {
		return 0, nil
	}
	want := uint32(len(buf))
	if offset+want > length {
		want = length - offset
	}
	blockListOff := img.inodeOffset(inode) + InodeHeader
	copied := uint32(0)
	for copied < want {
		absPos := offset + copied
		blockIdx := absPos / BlockSize
		blockOffInner := absPos % BlockSize
		if blockListOff+int(blockIdx)*4+4 > len(img.raw) {
			return int(copied), ErrTruncated
		}
		dataBlockNum := binary.LittleEndian.Uint32(img.raw[blockListOff+int(blockIdx)*4 : blockListOff+int(blockIdx)*4+4])
		if dataBlockNum >= img.numBlocks {
			return int(copied), ErrBadInode
		}
		blockBase := img.blockOffset(dataBlockNum)
		n := uint32(BlockSize) - blockOffInner
		remaining := want - copied
		if n > remaining {
			n = remaining
		}
		src := img.raw[blockBase+int(blockOffInner) : blockBase+int(blockOffInner)+int(n)]
		copy(buf[copied:copied+n], src)
		copied += n
	}
	return int(copied), nil
}
