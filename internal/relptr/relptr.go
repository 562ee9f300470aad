// Package relptr implements the self-relative pointer convention required
// by the persistent index format: a pointer is stored as a signed offset
// such that address_of(pointer) + offset == address_of(target), with the
// null pointer being the offset that resolves to absolute address zero.
//
// This is adapted from original_source/include/astrolib/pointer.hpp's
// relative_ptr<T>. That C++ type is storage-bound and non-movable (moving
// it changes its own address and silently retargets it), enforced with a
// deleted move constructor. Go has no equivalent notion of an object's
// address being part of its identity, so there is nothing to forbid moving
// here: Ptr is a plain value type, and every operation takes the pointer's
// own file offset explicitly rather than relying on `this`. That sidesteps
// the hazard the C++ type exists to prevent, rather than reproducing it.
package relptr

// Ptr is the signed delta stored at some file offset `at`, resolving to
// the absolute target offset `at + delta`.
type Ptr int64

// Null is the zero-value delta; it does NOT always mean "no target" on its
// own (the null convention depends on `at`): a zero delta resolves to its
// own storage offset `at`, so it is null only when stored at offset 0.
// Callers always compare via IsNull(at), and write NullAt(at) into slots
// that must read back as null.
const Null Ptr = 0

// New builds the delta that makes the pointer stored at file offset `at`
// resolve to `target`.
func New(at, target uint64) Ptr {
	return Ptr(int64(target) - int64(at))
}

// NullAt returns the delta that makes a pointer stored at `at` resolve to
// absolute address zero — the null pointer for that storage location.
func NullAt(at uint64) Ptr {
	return Ptr(-int64(at))
}

// Target resolves the pointer stored at file offset `at` to the absolute
// offset it refers to.
func (p Ptr) Target(at uint64) uint64 {
	return uint64(int64(at) + int64(p))
}

// IsNull reports whether the pointer stored at file offset `at` resolves
// to absolute address zero.
func (p Ptr) IsNull(at uint64) bool {
	return int64(at)+int64(p) == 0
}
