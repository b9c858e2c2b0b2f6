// Package vfs implements the per-process file-descriptor table and
// its operation vtables (spec.md §4.6, component C6), grounded on
// original_source/student-distrib/syscall.c's file_ops_t dispatch and
// on the teacher's machine_bus.go MapIO-by-handler pattern.
//
// This package stays independent of internal/process and
// internal/terminal on purpose: a FileDescriptor's Context field is an
// opaque handle the owning Operations implementation type-asserts for
// itself, so internal/terminal can implement vfs.Operations without
// vfs ever importing terminal (or process) back.
package vfs

import "errors"

const MaxFiles = 8

// Kind tags what a file descriptor is backed by, per spec.md §4.6.
type Kind uint8

const (
	KindTerminal Kind = iota
	KindRTC
	KindRegular
	KindDirectory
)

// Operations is a file_ops_t vtable: one implementation per Kind.
type Operations interface {
	Open(fd *FileDescriptor) error
	Read(fd *FileDescriptor, buf []byte) (int, error)
	Write(fd *FileDescriptor, buf []byte) (int, error)
	Close(fd *FileDescriptor) error
}

// FileDescriptor is one slot in a process's fixed 8-entry table.
type FileDescriptor struct {
	Ops       Operations
	Inode     uint32 // valid when Kind is KindRegular or KindDirectory
	Position  uint32
	InUse     bool
	CanRead   bool
	CanWrite  bool
	Kind      Kind
	Context   any // opaque: *terminal.Terminal, rtc tick state, etc.
}

var (
	ErrClosed       = errors.New("vfs: file descriptor not in use")
	ErrTableFull    = errors.New("vfs: no free file descriptor slots")
	ErrReservedFD   = errors.New("vfs: stdin/stdout cannot be closed")
	ErrNotReadable  = errors.New("vfs: descriptor is not open for reading")
	ErrNotWritable  = errors.New("vfs: descriptor is not open for writing")
	ErrUnresolvable = errors.New("vfs: name does not resolve to any file")
)

// Table is a process's fixed 8-slot open-file array. Slots 0 and 1 are
// reserved for stdin/stdout and are filled by Init, never by Open.
type Table struct {
	slots [MaxFiles]FileDescriptor
}

// Init fills slots 0 and 1 with the terminal vtable, per spec.md §3's
// invariant that open_files[0]/[1] are always present and of kind
// terminal. Called once when a process is created.
func (t *Table) Init(terminalOps Operations, ctx any) {
	t.slots[0] = FileDescriptor{Ops: terminalOps, InUse: true, CanRead: true, CanWrite: false, Kind: KindTerminal, Context: ctx}
	t.slots[1] = FileDescriptor{Ops: terminalOps, InUse: true, CanRead: false, CanWrite: true, Kind: KindTerminal, Context: ctx}
}

// Resolver maps a filename to the vtable, kind, and context a fresh
// fd should open with, per spec.md §4.6's dispatch list. Supplied by
// the kernel wiring layer since it alone knows the terminal, RTC, and
// filesystem-index instances in play.
type Resolver interface {
	Resolve(name string) (ops Operations, kind Kind, ctx any, inode uint32, ok bool)
}

// Open resolves name via r and fills the first free slot (2..7),
// mirroring spec.md §4.5 syscall 5: fd >= 2, or -1 if unresolvable or
// the table is full.
func (t *Table) Open(name string, r Resolver) (int, error) {
	ops, kind, ctx, inode, ok := r.Resolve(name)
	if !ok {
		return -1, ErrUnresolvable
	}
	for i := 2; i < MaxFiles; i++ {
		if t.slots[i].InUse {
			continue
		}
		canRead, canWrite := true, true
		switch name {
		case "/dev/stdin":
			canWrite = false
		case "/dev/stdout":
			canRead = false
		}
		fd := FileDescriptor{Ops: ops, Inode: inode, InUse: true, CanRead: canRead, CanWrite: canWrite, Kind: kind, Context: ctx}
		if err := ops.Open(&fd); err != nil {
			return -1, err
		}
		t.slots[i] = fd
		return i, nil
	}
	return -1, ErrTableFull
}

// Close releases fd. Closing stdin or stdout is an error per
// spec.md §4.6.
func (t *Table) Close(fd int) error {
	if fd == 0 || fd == 1 {
		return ErrReservedFD
	}
	if fd < 0 || fd >= MaxFiles || !t.slots[fd].InUse {
		return ErrClosed
	}
	if err := t.slots[fd].Ops.Close(&t.slots[fd]); err != nil {
		return err
	}
	t.slots[fd] = FileDescriptor{}
	return nil
}

// CloseAll closes every in-use slot in ascending order, per spec.md
// §4.3's halt lifecycle note ("file descriptors closed in creation
// order"). Slots 0/1 are force-closed here since halt tears the whole
// process down, unlike a user-issued close syscall.
func (t *Table) CloseAll() {
	for i := 0; i < MaxFiles; i++ {
		if !t.slots[i].InUse {
			continue
		}
		t.slots[i].Ops.Close(&t.slots[i])
		t.slots[i] = FileDescriptor{}
	}
}

func (t *Table) Read(fd int, buf []byte) (int, error) {
	d, err := t.checked(fd)
	if err != nil {
		return 0, err
	}
	if !d.CanRead {
		return 0, ErrNotReadable
	}
	return d.Ops.Read(d, buf)
}

func (t *Table) Write(fd int, buf []byte) (int, error) {
	d, err := t.checked(fd)
	if err != nil {
		return 0, err
	}
	if !d.CanWrite {
		return 0, ErrNotWritable
	}
	return d.Ops.Write(d, buf)
}

func (t *Table) checked(fd int) (*FileDescriptor, error) {
	if fd < 0 || fd >= MaxFiles || !t.slots[fd].InUse {
		return nil, ErrClosed
	}
	return &t.slots[fd], nil
}

// Get exposes the descriptor at fd for callers (the screen status bar,
// diagnostics) that need to inspect Kind/Context without going through
// Read/Write.
func (t *Table) Get(fd int) (*FileDescriptor, bool) {
	if fd < 0 || fd >= MaxFiles || !t.slots[fd].InUse {
		return nil, false
	}
	return &t.slots[fd], true
}
