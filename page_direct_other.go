//go:build !linux

package kvstore


// directIOFlag
//	Non-Linux hosts have no portable O_DIRECT equivalent reachable
//	through golang.org/x/sys/unix; the page layer simply uses buffered
//	I/O there, since correctness never depends on bypassing the page
//	cache.
func directIOFlag() int {
	return 0
}
