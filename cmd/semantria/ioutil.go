package main

import (
	"bytes"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

var NEW_FILE_MODE fs.FileMode = 0600 // permissions for new files

// UNIX file mode permission bits
type UnixPermBits uint32

const (
	UnixPermSetuid UnixPermBits = 1 << (12 - 1 - iota)
	UnixPermSetgid
	UnixPermSticky
	UnixPermUserRead
	UnixPermUserWrite
	UnixPermUserExecute
	UnixPermGroupRead
	UnixPermGroupWrite
	UnixPermGroupExecute
	UnixPermOtherRead
	UnixPermOtherWrite
	UnixPermOtherExecute
)

type writeFileTransaction struct {
	f        *os.File
	filename string
	mode     fs.FileMode
}

func (t *writeFileTransaction) Write(p []byte) (n int, err error) {
	return t.f.Write(p)
}

// Close moves the file into place. Readers never see a partially written file.
func (t *writeFileTransaction) Close() error {
	if err := t.f.Close(); err != nil {
		os.Remove(t.f.Name())
		return err
	}
	return renameFile(t.f.Name(), t.filename, t.mode)
}

func createFileAtomic(filename string, mode fs.FileMode) (io.WriteCloser, error) {
	if err := mkdirsForFile(filename, mode); err != nil {
		return nil, err
	}
	// same directory as filename so that rename does not cross devices
	f, err := os.CreateTemp(filepath.Dir(filename), ".semantria-*")
	if err != nil {
		return nil, err
	}
	return &writeFileTransaction{f, filename, mode}, nil
}

// exportResults writes each result to dir/<id>.json
func exportResults(dir string, results []Result) error {
	for _, r := range results {
		filename := filepath.Join(dir, filepath.Base(r.Id)+".json")
		f, err := createFileAtomic(filename, NEW_FILE_MODE)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, r.Data, "", "  "); err != nil {
			buf.Reset()
			buf.Write(r.Data)
		}
		buf.WriteByte('\n')
		_, err = f.Write(buf.Bytes())
		if err2 := f.Close(); err == nil {
			err = err2
		}
		if err != nil {
			return errorf("failed to write %q: %v", filename, err)
		}
	}
	return nil
}

func mkdirsForFile(filename string, perm os.FileMode) error {
	dir, err := filepath.Abs(filename)
	if err != nil {
		return err
	}
	dirperm := matchingDirUnixPerm(perm)
	return os.MkdirAll(filepath.Dir(dir), dirperm)
}

func renameFile(oldpath, newpath string, mode os.FileMode) error {
	if err := os.Chmod(oldpath, mode); err != nil {
		return err
	}
	err := os.Rename(oldpath, newpath)
	if err != nil && os.IsNotExist(err) {
		if err = mkdirsForFile(newpath, mode); err == nil {
			err = os.Rename(oldpath, newpath)
		}
	}
	return err
}

func matchingDirUnixPerm(perm os.FileMode) os.FileMode {
	if perm&os.FileMode(UnixPermUserRead) != 0 {
		perm |= os.FileMode(UnixPermUserExecute)
	}
	if perm&os.FileMode(UnixPermGroupRead) != 0 {
		perm |= os.FileMode(UnixPermGroupExecute)
	}
	if perm&os.FileMode(UnixPermOtherRead) != 0 {
		perm |= os.FileMode(UnixPermOtherExecute)
	}
	return perm
}
