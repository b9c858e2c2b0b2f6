package vfs

import (
	"fmt"

	"github.com/aerohand/xios/internal/fsimage"
)

// FileOps is the regular-file vtable, backed by the in-RAM read-only
// filesystem image (spec.md §4.6/§6). Per spec.md §9 design note (d),
// Write is permanently read-only and returns an error, matching the
// original fs_write's documented −1.
type FileOps struct {
	Image *fsimage.Image
}

func (FileOps) Open(fd *FileDescriptor) error { return nil }

func (o FileOps) Read(fd *FileDescriptor, buf []byte) (int, error) {
	n, err := o.Image.ReadData(fd.Inode, fd.Position, buf)
	if err != nil {
		return 0, err
	}
	fd.Position += uint32(n)
	return n, nil
}

func (FileOps) Write(fd *FileDescriptor, buf []byte) (int, error) {
	return -1, fmt.Errorf("vfs: regular files are read-only")
}

func (FileOps) Close(fd *FileDescriptor) error { return nil }

// DirectoryOps is the directory-read vtable: each Read call returns
// the next dentry's name and advances a per-fd cursor, the same
// "one entry per read" convention the original directory_read uses.
type DirectoryOps struct {
	Image *fsimage.Image
}

func (DirectoryOps) Open(fd *FileDescriptor) error {
	fd.Position = 0
	return nil
}

func (o DirectoryOps) Read(fd *FileDescriptor, buf []byte) (int, error) {
	d, ok := o.Image.ReadDentryByIndex(int(fd.Position))
	if !ok {
		return 0, nil
	}
	fd.Position++
	n := copy(buf, d.Name)
	return n, nil
}

func (DirectoryOps) Write(fd *FileDescriptor, buf []byte) (int, error) {
	return -1, fmt.Errorf("vfs: directories are read-only")
}

func (DirectoryOps) Close(fd *FileDescriptor) error { return nil }
