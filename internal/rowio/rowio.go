// Package rowio streams delimited rows in and plain delimiter-joined lines
// out. Neither side buffers more than one row.
package rowio

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Row is one delimiter-split record. Fields are never coerced.
type Row []string

// FileAccessError reports an input or output file that cannot be used.
type FileAccessError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error { return e.Err }

// IsFileAccessError reports whether err is (or wraps) a FileAccessError.
func IsFileAccessError(err error) bool {
	var fe *FileAccessError
	return errors.As(err, &fe)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Reader reads rows lazily from a delimited file. A blank line comes back
// as an empty Row so callers decide what it means.
type Reader struct {
	path  string
	f     *os.File
	cr    *csv.Reader
	lc    *lineCounter
	index int
	line  int // line the last returned row started on

	consumed int // lines up to the end of the last csv record
	blanks   int // blank lines still owed before held
	held     Row
	heldLine int
	heldEnd  int
	eof      bool
}

// Open prepares path for sequential reading. A leading UTF-8 BOM is dropped.
func Open(path string, delim rune) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileAccessError{Op: "open input", Path: path, Err: err}
	}
	br := bufio.NewReader(f)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	lc := &lineCounter{r: br}

	cr := csv.NewReader(lc)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return &Reader{path: path, f: f, cr: cr, lc: lc}, nil
}

// Next returns the next row and its zero-based index, counting blank lines
// as rows. It returns io.EOF once the input is exhausted.
func (r *Reader) Next() (Row, int, error) {
	for {
		if r.blanks > 0 {
			r.blanks--
			r.consumed++
			return r.emit(Row{}, r.consumed)
		}
		if r.held != nil {
			row := r.held
			r.held = nil
			r.consumed = r.heldEnd
			return r.emit(row, r.heldLine)
		}
		if r.eof {
			return nil, r.index, io.EOF
		}

		rec, err := r.cr.Read()
		if err == io.EOF {
			// encoding/csv swallows trailing blank lines; recover them from
			// the raw line count.
			r.eof = true
			r.blanks = r.lc.total() - r.consumed
			continue
		}
		if err != nil {
			return nil, r.index, &FileAccessError{Op: "read input", Path: r.path, Err: err}
		}

		start, _ := r.cr.FieldPos(0)
		last, _ := r.cr.FieldPos(len(rec) - 1)
		end := last + strings.Count(rec[len(rec)-1], "\n")
		if gap := start - r.consumed - 1; gap > 0 {
			r.held, r.heldLine, r.heldEnd = Row(rec), start, end
			r.blanks = gap
			continue
		}
		r.consumed = end
		return r.emit(Row(rec), start)
	}
}

func (r *Reader) emit(row Row, line int) (Row, int, error) {
	idx := r.index
	r.index++
	r.line = line
	return row, idx, nil
}

// Line returns the 1-based input line the most recent row started on.
func (r *Reader) Line() int {
	return r.line
}

func (r *Reader) Close() error {
	return r.f.Close()
}

// Writer appends delimiter-joined lines to a file, flushing each one, and
// echoes every line to an optional secondary writer.
type Writer struct {
	path  string
	f     *os.File
	bw    *bufio.Writer
	delim string
	echo  io.Writer
	lines int
}

// Create truncates or creates path. echo may be nil.
func Create(path string, delim rune, echo io.Writer) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, &FileAccessError{Op: "create output", Path: path, Err: err}
	}
	return &Writer{
		path:  path,
		f:     f,
		bw:    bufio.NewWriter(f),
		delim: string(delim),
		echo:  echo,
	}, nil
}

// WriteRow joins fields with the delimiter and writes one newline-terminated
// line. The line is on disk before WriteRow returns.
func (w *Writer) WriteRow(fields ...string) error {
	line := strings.Join(fields, w.delim)
	if _, err := w.bw.WriteString(line + "\n"); err != nil {
		return &FileAccessError{Op: "write output", Path: w.path, Err: err}
	}
	if err := w.bw.Flush(); err != nil {
		return &FileAccessError{Op: "write output", Path: w.path, Err: err}
	}
	w.lines++
	if w.echo != nil {
		fmt.Fprintln(w.echo, line)
	}
	return nil
}

// Lines returns the number of lines written so far.
func (w *Writer) Lines() int { return w.lines }

func (w *Writer) Close() error {
	flushErr := w.bw.Flush()
	closeErr := w.f.Close()
	if flushErr != nil {
		return &FileAccessError{Op: "flush output", Path: w.path, Err: flushErr}
	}
	if closeErr != nil {
		return &FileAccessError{Op: "close output", Path: w.path, Err: closeErr}
	}
	return nil
}

// lineCounter counts the physical lines that pass through it.
type lineCounter struct {
	r       io.Reader
	lines   int
	partial bool // bytes seen after the last newline
}

func (c *lineCounter) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	for _, b := range p[:n] {
		if b == '\n' {
			c.lines++
			c.partial = false
		} else {
			c.partial = true
		}
	}
	return n, err
}

func (c *lineCounter) total() int {
	if c.partial {
		return c.lines + 1
	}
	return c.lines
}
