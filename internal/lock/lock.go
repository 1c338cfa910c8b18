// Package lock guarantees a single bzd per instance directory.
package lock

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// FileName is the lock file created inside the instance directory.
const FileName = "bzd.lock"

// HeldError is returned when another daemon owns the instance.
type HeldError struct {
	Owner Owner
	Path  string
}

func (e *HeldError) Error() string {
	return fmt.Sprintf("instance lock held by PID %d since %s (%s)",
		e.Owner.PID, e.Owner.Since.Format(time.RFC3339), e.Path)
}

// Owner describes the process recorded in a lock file.
type Owner struct {
	PID      int
	Instance string
	Since    time.Time
}

// Lock is an acquired instance lock.
type Lock struct {
	file *os.File
	path string
}

// Acquire takes the exclusive lock of dir on behalf of instance. It fails
// with *HeldError while another process holds it.
func Acquire(dir, instance string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create instance dir: %w", err)
	}
	path := filepath.Join(dir, FileName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		owner, _ := Read(dir)
		return nil, &HeldError{Owner: owner, Path: path}
	}

	content := fmt.Sprintf("pid=%d\ninstance=%s\nsince=%s\n",
		os.Getpid(), instance, time.Now().UTC().Format(time.RFC3339))
	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return nil, err
	}
	if _, err := f.WriteAt([]byte(content), 0); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Lock{file: f, path: path}, nil
}

// Read returns the owner recorded in dir's lock file. A missing file yields
// a zero Owner and fs.ErrNotExist.
func Read(dir string) (Owner, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return Owner{}, err
	}
	return parse(string(data)), nil
}

// Running reports whether a daemon currently holds dir's lock.
func Running(dir string) (Owner, bool) {
	l, err := Acquire(dir, "")
	var held *HeldError
	if errors.As(err, &held) {
		return held.Owner, true
	}
	if err == nil {
		_ = l.Release()
	}
	return Owner{}, false
}

// Release drops the lock and removes the file. Safe on a nil or released
// lock.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_ = l.file.Close()
		l.file = nil
		return err
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func parse(content string) Owner {
	var o Owner
	for _, line := range strings.Split(content, "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			o.PID, _ = strconv.Atoi(value)
		case "instance":
			o.Instance = value
		case "since":
			o.Since, _ = time.Parse(time.RFC3339, value)
		}
	}
	return o
}
