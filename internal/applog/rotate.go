package applog

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"sync"
)

// RotatingWriter is a size-based rotating file writer: once the current
// file exceeds MaxBytes, it is renamed to a numbered backup (optionally
// gzip-compressed) and a fresh file is opened. Only MaxBackups historical
// files are kept. There is no third-party rotation library exercised
// anywhere in the example corpus, so this stays on the standard library
// (os, compress/gzip) — see DESIGN.md.
type RotatingWriter struct {
	mu         sync.Mutex
	path       string
	maxBytes   int64
	maxBackups int
	gzip       bool

	file    *os.File
	written int64
}

// NewRotatingWriter opens (or creates) path for append and prepares
// rotation bookkeeping.
func NewRotatingWriter(path string, maxBytes int64, maxBackups int, gzipBackups bool) (*RotatingWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &RotatingWriter{
		path:       path,
		maxBytes:   maxBytes,
		maxBackups: maxBackups,
		gzip:       gzipBackups,
		file:       f,
		written:    info.Size(),
	}, nil
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.maxBytes > 0 && w.written+int64(len(p)) > w.maxBytes {
		if err := w.rotateLocked(); err != nil {
			return 0, err
		}
	}
	n, err := w.file.Write(p)
	w.written += int64(n)
	return n, err
}

func (w *RotatingWriter) rotateLocked() error {
	if err := w.file.Close(); err != nil {
		return err
	}

	// Shift existing numbered backups up by one, dropping overflow.
	for i := w.maxBackups - 1; i >= 1; i-- {
		src := w.backupName(i)
		dst := w.backupName(i + 1)
		if _, err := os.Stat(src); err == nil {
			_ = os.Rename(src, dst)
		}
		if _, err := os.Stat(src + ".gz"); err == nil {
			_ = os.Rename(src+".gz", dst+".gz")
		}
	}
	if w.maxBackups > 0 {
		target := w.backupName(1)
		if w.gzip {
			if err := gzipFile(w.path, target+".gz"); err != nil {
				return err
			}
			_ = os.Remove(w.path)
		} else if err := os.Rename(w.path, target); err != nil {
			return err
		}
	} else {
		_ = os.Remove(w.path)
	}

	// Drop any backups beyond maxBackups.
	if extra := w.backupName(w.maxBackups + 1); extra != "" {
		_ = os.Remove(extra)
		_ = os.Remove(extra + ".gz")
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	w.file = f
	w.written = 0
	return nil
}

func (w *RotatingWriter) backupName(n int) string {
	return fmt.Sprintf("%s.%d", w.path, n)
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	gw := gzip.NewWriter(out)
	defer gw.Close()

	_, err = io.Copy(gw, in)
	return err
}

// Close closes the underlying file.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
