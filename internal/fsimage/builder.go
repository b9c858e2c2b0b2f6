package fsimage

import "encoding/binary"

// Builder assembles an in-memory image byte-for-byte compatible with
// Parse, used by tests and by `xioshost boot`/`ps` to synthesize an
// image without a real floppy.
type Builder struct {
	dentries     []Dentry
	inodes       [][]uint32 // per-inode list of data-block indices
	inodeLengths []uint32
	blocks       [][]byte // raw 4KiB blocks (last may be short; padded on Build)
}

func NewBuilder() *Builder { return &Builder{} }

// AddFile stores data under name, allocating as many blocks and one
// inode as needed, and returns the inode index.
func (b *Builder) AddFile(name string, typ DentryType, data []byte) uint32 {
	var blockIdxs []uint32
	for off := 0; off < len(data) || (len(data) == 0 && off == 0); off += BlockSize {
		end := off + BlockSize
		if end > len(data) {
			end = len(data)
		}
		blockIdxs = append(blockIdxs, uint32(len(b.blocks)))
		b.blocks = append(b.blocks, data[off:end])
		if len(data) == 0 {
			break
		}
	}
	inode := uint32(len(b.inodes))
	b.inodes = append(b.inodes, blockIdxs)
	b.dentries = append(b.dentries, Dentry{Name: name, Type: typ, Inode: inode})
	b.inodeLengths = append(b.inodeLengths, uint32(len(data)))
	return inode
}

func (b *Builder) Build() []byte {
	master := make([]byte, MasterSize)
	binary.LittleEndian.PutUint32(master[0:4], uint32(len(b.dentries)))
	binary.LittleEndian.PutUint32(master[4:8], uint32(len(b.inodes)))
	binary.LittleEndian.PutUint32(master[8:12], uint32(len(b.blocks)))

	dentryBytes := make([]byte, len(b.dentries)*DentrySize)
	for i, d := range b.dentries {
		off := i * DentrySize
		copy(dentryBytes[off:off+NameMax], d.Name)
		binary.LittleEndian.PutUint32(dentryBytes[off+NameMax:off+NameMax+4], uint32(d.Type))
		binary.LittleEndian.PutUint32(dentryBytes[off+NameMax+4:off+NameMax+8], d.Inode)
	}

	inodeBytes := make([]byte, len(b.inodes)*InodeSize)
	for i, blockIdxs := range b.inodes {
		off := i * InodeSize
		binary.LittleEndian.PutUint32(inodeBytes[off:off+4], b.inodeLengths[i])
		for j, blk := range blockIdxs {
			binary.LittleEndian.PutUint32(inodeBytes[off+4+j*4:off+4+j*4+4], blk)
		}
	}

	blockBytes := make([]byte, len(b.blocks)*BlockSize)
	for i, blk := range b.blocks {
		copy(blockBytes[i*BlockSize:], blk)
	}

	out := make([]byte, 0, len(master)+len(dentryBytes)+len(inodeBytes)+len(blockBytes))
	out = append(out, master...)
	out = append(out, dentryBytes...)
	out = append(out, inodeBytes...)
	out = append(out, blockBytes...)
	return out
}
