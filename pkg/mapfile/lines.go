package mapfile

import (
	"bufio"
	"io"
	"strings"
)

// line is one input line with its terminator stripped.
type line struct {
	text       string
	terminated bool
	number     int
}

// lineReader is a forward cursor over the input with a lookahead window.
// Lines handed out by peek stay in the window until discard or next
// consumes them.
type lineReader struct {
	r       *bufio.Reader
	pending []line
	number  int
	eof     bool
	err     error
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReader(r)}
}

// fill reads until the window holds n lines or the input is exhausted.
func (lr *lineReader) fill(n int) {
	for len(lr.pending) < n && !lr.eof {
		s, err := lr.r.ReadString('\n')
		if err != nil {
			lr.eof = true
			if err != io.EOF {
				lr.err = err
			}
			if s == "" {
				return
			}
		}

		lr.number++
		l := line{number: lr.number}
		if strings.HasSuffix(s, "\n") {
			l.terminated = true
			s = strings.TrimSuffix(s, "\n")
			s = strings.TrimSuffix(s, "\r")
		}
		l.text = s
		lr.pending = append(lr.pending, l)
	}
}

// next consumes and returns the next line.
func (lr *lineReader) next() (line, bool) {
	lr.fill(1)
	if len(lr.pending) == 0 {
		return line{}, false
	}
	l := lr.pending[0]
	lr.pending = lr.pending[1:]
	return l, true
}

// peek returns up to n upcoming lines without consuming them.
func (lr *lineReader) peek(n int) []line {
	lr.fill(n)
	if len(lr.pending) < n {
		return lr.pending
	}
	return lr.pending[:n]
}

// discard consumes n lines from the window.
func (lr *lineReader) discard(n int) {
	lr.fill(n)
	if n > len(lr.pending) {
		n = len(lr.pending)
	}
	lr.pending = lr.pending[n:]
}

// Err returns the first non-EOF read error.
func (lr *lineReader) Err() error {
	return lr.err
}
