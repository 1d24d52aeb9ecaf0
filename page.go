package kvstore

import "io"
import "os"


//============================================= Page/IO Layer


// PageFile
//	A file accessed at page granularity. Reads and writes attempt to
//	bypass the OS page cache via directIOFlag(); correctness never
//	depends on that succeeding.
type PageFile struct {
	path     string
	file     *os.File
	pageSize int
}

// createPageFile
//	Creates (or truncates) path and opens it for page-granular I/O.
func createPageFile(path string, pageSize int) (*PageFile, error) {
	file, err := openWithDirectFallback(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC)
	if err != nil { return nil, newIOError("create", path, err) }
	return &PageFile{path: path, file: file, pageSize: pageSize}, nil
}

// openPageFile
//	Opens an existing file for page-granular I/O.
func openPageFile(path string, pageSize int) (*PageFile, error) {
	file, err := openWithDirectFallback(path, os.O_RDWR)
	if err != nil { return nil, newIOError("open", path, err) }
	return &PageFile{path: path, file: file, pageSize: pageSize}, nil
}

// openWithDirectFallback
//	Tries to open with the direct-I/O flag set; if the filesystem
//	refuses it (ENOTSUP-style errors on, e.g., tmpfs), retries without
//	it. Either way the open succeeds or returns a real error.
func openWithDirectFallback(path string, flags int) (*os.File, error) {
	file, err := os.OpenFile(path, flags|directIOFlag(), 0644)
	if err != nil && directIOFlag() != 0 {
		file, err = os.OpenFile(path, flags, 0644)
	}
	return file, err
}

// fileExists
//	Reports whether path names an existing, regular-or-directory entry.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ReadPage
//	Reads the page at pageIndex, returning a page-sized slice or a
//	shorter one if the file ends partway through that page. Returns an
//	empty slice, not an error, when pageIndex is entirely past EOF.
func (pf *PageFile) ReadPage(pageIndex PageIndex) ([]byte, error) {
	buf := make([]byte, pf.pageSize)
	n, err := pf.file.ReadAt(buf, pageIndex*int64(pf.pageSize))
	if err != nil && err != io.EOF { return nil, newIOError("read_page", pf.path, err) }
	return buf[:n], nil
}

// WriteAt
//	Writes buf at the given byte offset.
func (pf *PageFile) WriteAt(buf []byte, offset int64) error {
	_, err := pf.file.WriteAt(buf, offset)
	if err != nil { return newIOError("write", pf.path, err) }
	return nil
}

// WriteAll
//	Overwrites the file's entire contents with buf. The write itself is
//	padded to the nearest minimum-write-size multiple, but the file is
//	then truncated back to len(buf) exactly, so a later stat-based
//	length check sees the logical size, not the padded one.
func (pf *PageFile) WriteAll(buf []byte) error {
	logicalLen := len(buf)
	padded := nearestMinWriteMultiple(logicalLen, pf.pageSize)
	if padded > logicalLen {
		extended := make([]byte, padded)
		copy(extended, buf)
		buf = extended
	}

	if err := pf.file.Truncate(0); err != nil { return newIOError("truncate", pf.path, err) }
	if _, err := pf.file.WriteAt(buf, 0); err != nil { return newIOError("write", pf.path, err) }
	if err := pf.file.Truncate(int64(logicalLen)); err != nil { return newIOError("truncate", pf.path, err) }

	return nil
}

// Truncate
//	Sets the file's exact length; B-tree index construction uses it to
//	size the index file to its whole number of node pages before
//	writing them. WriteAll does its own truncation and does not call it.
func (pf *PageFile) Truncate(size int64) error {
	if err := pf.file.Truncate(size); err != nil { return newIOError("truncate", pf.path, err) }
	return nil
}

// Size
//	Current byte length of the file.
func (pf *PageFile) Size() (int64, error) {
	info, err := pf.file.Stat()
	if err != nil { return 0, newIOError("stat", pf.path, err) }
	return info.Size(), nil
}

// Sync
//	Flushes file contents to stable storage.
func (pf *PageFile) Sync() error {
	if err := pf.file.Sync(); err != nil { return newIOError("sync", pf.path, err) }
	return nil
}

// Close
//	Closes the underlying file descriptor.
func (pf *PageFile) Close() error {
	if err := pf.file.Close(); err != nil { return newIOError("close", pf.path, err) }
	return nil
}

// removeFile
//	Deletes path if it exists; a missing file is not an error.
func removeFile(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) { return newIOError("remove", path, err) }
	return nil
}

// renameFile
//	Renames oldPath to newPath, replacing newPath if present.
func renameFile(oldPath, newPath string) error {
	if err := os.Rename(oldPath, newPath); err != nil { return newIOError("rename", oldPath, err) }
	return nil
}
