package shared

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	readerBufferSize = 512 * 1024
	maxLineSize      = 8 * 1024 * 1024
)

// ScanJSONL calls fn for every non-blank line of the file. Lines longer than
// maxLineSize are drained and skipped; scanning continues with the next line.
func ScanJSONL(path string, fn func(lineNumber int, line []byte)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, readerBufferSize)
	var (
		line       []byte
		lineNumber int
		pending    bool
		tooLong    bool
	)
	for {
		chunk, err := r.ReadSlice('\n')
		if len(chunk) > 0 {
			pending = true
			if !tooLong {
				if len(line)+len(chunk) > maxLineSize {
					tooLong, line = true, line[:0]
				} else {
					line = append(line, chunk...)
				}
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if pending {
			lineNumber++
			if trimmed := bytes.TrimSpace(line); !tooLong && len(trimmed) > 0 {
				fn(lineNumber, trimmed)
			}
			line, pending, tooLong = line[:0], false, false
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading %s after line %d: %w", path, lineNumber, err)
		}
	}
}
