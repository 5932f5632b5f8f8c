package folio

import (
	"io"
	"os"
)

// OpenMode specifies how a file should be opened.
type OpenMode int

const (
	// OpenModeRead opens the file for reading only.
	OpenModeRead OpenMode = iota

	// OpenModeWrite creates or truncates the file for writing only.
	OpenModeWrite

	// OpenModeReadWrite opens the file for reading and writing.
	OpenModeReadWrite
)

// FileHandle represents an open file.
type FileHandle interface{}

// FileSystemInterface abstracts file operations so documents can live on
// custom storage. The library provides a default implementation for local files.
type FileSystemInterface interface {
	Open(name string, mode OpenMode) (FileHandle, error)
	SeekByte(handle FileHandle, pos int64) error
	ReadBytes(handle FileHandle, length int) ([]byte, error)
	WriteBytes(handle FileHandle, data []byte) error
	FileSize(handle FileHandle) (int64, error)
	Close(handle FileHandle) error

	// Stat describes a file by name without opening it.
	Stat(name string) (os.FileInfo, error)

	// Rename atomically replaces newName with oldName where supported.
	Rename(oldName, newName string) error

	WriteFile(name string, data []byte) error
	ReadFile(name string) ([]byte, error)
	MkdirAll(path string) error
	Remove(name string) error
}

// LocalFileSystem returns the default FileSystemInterface for local files.
func LocalFileSystem() FileSystemInterface {
	return &localFileSystem{}
}

// localFileHandle wraps an os.File for the local file system.
type localFileHandle struct {
	file *os.File
}

// localFileSystem implements FileSystemInterface for local files.
type localFileSystem struct{}

func (fs *localFileSystem) Open(name string, mode OpenMode) (FileHandle, error) {
	var flag int
	switch mode {
	case OpenModeRead:
		flag = os.O_RDONLY
	case OpenModeWrite:
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case OpenModeReadWrite:
		flag = os.O_RDWR | os.O_CREATE
	}

	f, err := os.OpenFile(name, flag, 0644)
	if err != nil {
		return nil, err
	}
	return &localFileHandle{file: f}, nil
}

func (fs *localFileSystem) SeekByte(handle FileHandle, pos int64) error {
	h, ok := handle.(*localFileHandle)
	if !ok {
		return ErrFileNotOpen
	}
	_, err := h.file.Seek(pos, io.SeekStart)
	return err
}

// ReadBytes reads up to length bytes, returning fewer only at end of file.
func (fs *localFileSystem) ReadBytes(handle FileHandle, length int) ([]byte, error) {
	h, ok := handle.(*localFileHandle)
	if !ok {
		return nil, ErrFileNotOpen
	}
	data := make([]byte, length)
	n, err := io.ReadFull(h.file, data)
	if err == io.ErrUnexpectedEOF {
		return data[:n], nil
	}
	if err != nil {
		return nil, err
	}
	return data[:n], nil
}

func (fs *localFileSystem) WriteBytes(handle FileHandle, data []byte) error {
	h, ok := handle.(*localFileHandle)
	if !ok {
		return ErrFileNotOpen
	}
	_, err := h.file.Write(data)
	return err
}

func (fs *localFileSystem) FileSize(handle FileHandle) (int64, error) {
	h, ok := handle.(*localFileHandle)
	if !ok {
		return 0, ErrFileNotOpen
	}
	info, err := h.file.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (fs *localFileSystem) Close(handle FileHandle) error {
	h, ok := handle.(*localFileHandle)
	if !ok {
		return ErrFileNotOpen
	}
	return h.file.Close()
}

func (fs *localFileSystem) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

func (fs *localFileSystem) Rename(oldName, newName string) error {
	return os.Rename(oldName, newName)
}

func (fs *localFileSystem) WriteFile(name string, data []byte) error {
	return os.WriteFile(name, data, 0644)
}

func (fs *localFileSystem) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

func (fs *localFileSystem) MkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}

func (fs *localFileSystem) Remove(name string) error {
	return os.Remove(name)
}

// handleWriter adapts an open FileHandle to io.Writer.
type handleWriter struct {
	fs     FileSystemInterface
	handle FileHandle
}

func (w handleWriter) Write(p []byte) (int, error) {
	if err := w.fs.WriteBytes(w.handle, p); err != nil {
		return 0, err
	}
	return len(p), nil
}
