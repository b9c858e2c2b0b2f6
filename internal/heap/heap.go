// Package heap implements the kernel's bounded-region slab allocator
// (spec.md §4.1, component C1): a single STORAGE_BYTES pool split
// between two doubly-linked lists of region records — free and
// allocated — drawn from a fixed pool of MaxRegions record slots.
//
// There is no real address space behind this: Ptr is an offset into
// an in-process []byte backing store. That's enough to exercise the
// allocator's bookkeeping (coalescing, best-effort first-fit, the
// "free ignores interior pointers" property) and is what every other
// package in this repo that needs kernel memory (task stacks, run
// queue nodes, terminal scrollback) allocates from.
package heap

import (
	"sync"
)

const (
	// StorageBytes is the size of the span this heap manages, 24 MiB
	// per spec.md §3's "Ownership summary".
	StorageBytes = 24 * 1024 * 1024
	// MaxRegions bounds the pool of region records, per spec.md §9.
	MaxRegions = 500
)

// Ptr is an offset into the heap's backing storage. Zero is reserved
// for "null" — allocate(0) and a failed allocation both return it.
type Ptr uint32

const Null Ptr = 0

// region is one record in the fixed pool of MaxRegions slots.
type region struct {
	addr Ptr
	size uint32
	next, prev int32 // indices into pool; -1 means "no link"
	// inUse marks the pool slot as holding a live region record,
	// independent of which list (free or allocated) it's linked
	// into. A region on the free list still has inUse == true: the
	// field records "this slot is occupied by a record", not "this
	// byte range is allocated". See spec.md §9 design note (a).
	inUse bool
}

// Heap is the kernel's single slab allocator instance.
type Heap struct {
	mu      sync.Mutex
	storage []byte
	pool    [MaxRegions]region
	freeHead, freeTail int32
	allocHead, allocTail int32
}

// New constructs a heap with the entire StorageBytes span free.
func New() *Heap {
	h := &Heap{freeHead: -1, freeTail: -1, allocHead: -1, allocTail: -1}
	h.storage = make([]byte, StorageBytes)
	for i := range h.pool {
		h.pool[i].next, h.pool[i].prev = -1, -1
	}
	slot := h.newSlot()
	h.pool[slot] = region{addr: 1, size: StorageBytes - 1, next: -1, prev: -1, inUse: true}
	h.pushTail(&h.freeHead, &h.freeTail, slot)
	return h
}

// newSlot returns the index of a free pool record, or -1 if the pool
// of MaxRegions is exhausted.
func (h *Heap) newSlot() int32 {
	for i := range h.pool {
		if !h.pool[i].inUse {
			return int32(i)
		}
	}
	return -1
}

func (h *Heap) pushTail(head, tail *int32, slot int32) {
	h.pool[slot].next = -1
	h.pool[slot].prev = *tail
	if *tail >= 0 {
		h.pool[*tail].next = slot
	} else {
		*head = slot
	}
	*tail = slot
}

// insertSorted links slot into the (head, tail) list ordered ascending
// by address. Spec.md §4.1 calls the free list "sorted"; coalescing
// only ever merges a node with its immediate list successor, so the
// free list must stay address-ordered for that to find every adjacent
// pair, not just ones that happen to land next to each other in
// allocation order.
func (h *Heap) insertSorted(head, tail *int32, slot int32) {
	addr := h.pool[slot].addr
	i := *head
	for i >= 0 && h.pool[i].addr < addr {
		i = h.pool[i].next
	}
	if i < 0 {
		// addr is the largest (or the list is empty): tail insert.
		h.pushTail(head, tail, slot)
		return
	}
	prev := h.pool[i].prev
	h.pool[slot].prev = prev
	h.pool[slot].next = i
	h.pool[i].prev = slot
	if prev >= 0 {
		h.pool[prev].next = slot
	} else {
		*head = slot
	}
}

// unlink removes slot from whichever list (head, tail) currently holds
// it. spec.md §9 design note (b) flags the original's remove() as
// unconditionally dereferencing prev, unsafe at the head; this
// implementation uses explicit head/tail checks instead of relying on
// sentinel nodes.
func (h *Heap) unlink(head, tail *int32, slot int32) {
	r := &h.pool[slot]
	if r.prev >= 0 {
		h.pool[r.prev].next = r.next
	} else {
		*head = r.next
	}
	if r.next >= 0 {
		h.pool[r.next].prev = r.prev
	} else {
		*tail = r.prev
	}
	r.next, r.prev = -1, -1
}

func (h *Heap) freeSlot(slot int32) {
	h.pool[slot] = region{next: -1, prev: -1}
}

// coalesceFreeList merges adjacent free regions by address. Runs as
// part of Allocate's scan, per spec.md §4.1.
func (h *Heap) coalesceFreeList() {
	for i := h.freeHead; i >= 0; {
		next := h.pool[i].next
		if next >= 0 && h.pool[i].addr+Ptr(h.pool[i].size) == h.pool[next].addr {
			h.pool[i].size += h.pool[next].size
			h.unlink(&h.freeHead, &h.freeTail, next)
			h.freeSlot(next)
			continue // re-check i against its new next
		}
		i = next
	}
}

// Allocate reserves size bytes and returns a Ptr to the start of the
// range, or Null if size is zero, no free region is large enough, or
// the region pool is exhausted.
func (h *Heap) Allocate(size uint32) Ptr {
	if size == 0 {
		return Null
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.coalesceFreeList()

	for i := h.freeHead; i >= 0; i = h.pool[i].next {
		if h.pool[i].size < size {
			continue
		}
		addr := h.pool[i].addr
		remaining := h.pool[i].size - size
		if remaining == 0 {
			h.unlink(&h.freeHead, &h.freeTail, i)
			h.pool[i].addr = addr
			h.pool[i].size = size
			h.pushTail(&h.allocHead, &h.allocTail, i)
			return addr
		}
		// Trim the free region from the left; the allocation gets a
		// fresh record so the free record keeps its own identity.
		newSlot := h.newSlot()
		if newSlot < 0 {
			return Null
		}
		h.pool[i].addr = addr + Ptr(size)
		h.pool[i].size = remaining
		h.pool[newSlot] = region{addr: addr, size: size, next: -1, prev: -1, inUse: true}
		h.pushTail(&h.allocHead, &h.allocTail, newSlot)
		return addr
	}
	return Null
}

// Free releases the allocation that begins exactly at ptr. Per
// spec.md §4.1, a pointer into the middle of an allocation is ignored
// — this is a documented property, not a bug: Free never walks inside
// a live allocation to find its owning record.
func (h *Heap) Free(ptr Ptr) {
	if ptr == Null {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := h.allocHead; i >= 0; i = h.pool[i].next {
		if h.pool[i].addr != ptr {
			continue
		}
		addr, size := h.pool[i].addr, h.pool[i].size
		for b := addr; b < addr+Ptr(size); b++ {
			h.storage[b] = 0
		}
		h.unlink(&h.allocHead, &h.allocTail, i)
		h.insertSorted(&h.freeHead, &h.freeTail, i)
		return
	}
}

// View returns a byte slice over an allocation without validating
// that ptr/size match a live record — callers that hold a Ptr from
// Allocate are trusted, mirroring how a real kernel pointer works.
func (h *Heap) View(ptr Ptr, size uint32) []byte {
	return h.storage[ptr : ptr+Ptr(size)]
}

// Stats reports the free and allocated byte totals, used by the
// "heap conservation" testable property in spec.md §8.
func (h *Heap) Stats() (freeBytes, allocBytes uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := h.freeHead; i >= 0; i = h.pool[i].next {
		freeBytes += h.pool[i].size
	}
	for i := h.allocHead; i >= 0; i = h.pool[i].next {
		allocBytes += h.pool[i].size
	}
	return
}

// FreeRegionCount returns the number of distinct free regions, after
// coalescing — used by tests checking the conservation invariant.
func (h *Heap) FreeRegionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.coalesceFreeList()
	n := 0
	for i := h.freeHead; i >= 0; i = h.pool[i].next {
		n++
	}
	return n
}
