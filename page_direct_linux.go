//go:build linux

package kvstore

import "golang.org/x/sys/unix"


// directIOFlag
//	O_DIRECT requests that reads and writes bypass the OS page cache.
//	Correctness never depends on this taking effect, so failures to honor
//	it are not surfaced as errors; openPageFile falls back to a buffered
//	open if O_DIRECT is refused by the underlying filesystem (common on
//	tmpfs and some container overlays).
func directIOFlag() int {
	return unix.O_DIRECT
}
