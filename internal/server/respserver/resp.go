package respserver

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Protocol limits.
const (
	// MaxArrayLen limits the number of elements in a command array.
	MaxArrayLen = 1024

	// MaxBulkLen limits a single bulk string; it matches the default HTTP
	// body limit so every value accepted over HTTP can be SET over RESP.
	MaxBulkLen = 10 << 20

	// MaxInlineLen limits an inline command line.
	MaxInlineLen = 4 << 10

	// maxHeaderLen bounds "*<n>" and "$<n>" header lines.
	maxHeaderLen = 32
)

var (
	ErrProtocol      = errors.New("resp: protocol error")
	ErrLimitExceeded = errors.New("resp: limit exceeded")
)

var crlf = []byte("\r\n")

// ReadCommand reads one command, either a RESP array of bulk strings or an
// inline command line. An empty command yields a nil slice.
func ReadCommand(r *bufio.Reader) ([][]byte, error) {
	b, err := r.Peek(1)
	if err != nil {
		return nil, err
	}
	if b[0] == '*' {
		return readArray(r)
	}
	return readInline(r)
}

func readInline(r *bufio.Reader) ([][]byte, error) {
	line, err := readLine(r, MaxInlineLen)
	if err != nil {
		return nil, err
	}
	fields := bytes.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}
	return fields, nil
}

func readArray(r *bufio.Reader) ([][]byte, error) {
	n, err := readHeader(r, '*')
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}
	if n > MaxArrayLen {
		return nil, fmt.Errorf("%w: array length %d exceeds %d", ErrLimitExceeded, n, MaxArrayLen)
	}

	args := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		arg, err := readBulk(r)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return args, nil
}

func readBulk(r *bufio.Reader) ([]byte, error) {
	n, err := readHeader(r, '$')
	if err != nil {
		return nil, err
	}
	switch {
	case n == -1:
		return nil, nil
	case n < 0:
		return nil, fmt.Errorf("%w: negative bulk length", ErrProtocol)
	case n > MaxBulkLen:
		return nil, fmt.Errorf("%w: bulk length %d exceeds %d", ErrLimitExceeded, n, MaxBulkLen)
	}

	buf := make([]byte, n+len(crlf))
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	if !bytes.HasSuffix(buf, crlf) {
		return nil, fmt.Errorf("%w: bulk string not terminated by CRLF", ErrProtocol)
	}
	return buf[:n], nil
}

// readHeader reads a "<prefix><int>\r\n" line.
func readHeader(r *bufio.Reader, prefix byte) (int, error) {
	line, err := readLine(r, maxHeaderLen)
	if err != nil {
		return 0, err
	}
	if len(line) < 2 || line[0] != prefix {
		return 0, fmt.Errorf("%w: expected '%c'", ErrProtocol, prefix)
	}
	n, err := strconv.Atoi(string(line[1:]))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid length %q", ErrProtocol, line[1:])
	}
	return n, nil
}

// readLine reads a CRLF-terminated line of at most maxLen bytes, CRLF excluded.
func readLine(r *bufio.Reader, maxLen int) ([]byte, error) {
	var line []byte
	for {
		frag, err := r.ReadSlice('\n')
		line = append(line, frag...)
		if len(line) > maxLen+len(crlf) {
			return nil, fmt.Errorf("%w: line exceeds %d bytes", ErrLimitExceeded, maxLen)
		}
		if err == nil {
			break
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return nil, err
		}
	}
	if !bytes.HasSuffix(line, crlf) {
		return nil, fmt.Errorf("%w: missing CRLF", ErrProtocol)
	}
	return line[:len(line)-len(crlf)], nil
}

// replyWriter encodes RESP2 replies. The first write error sticks and later
// writes are skipped.
type replyWriter struct {
	w   *bufio.Writer
	err error
}

func (rw *replyWriter) write(parts ...string) {
	for _, p := range parts {
		if rw.err != nil {
			return
		}
		_, rw.err = rw.w.WriteString(p)
	}
}

func (rw *replyWriter) SimpleString(s string) { rw.write("+", s, "\r\n") }

// Error writes an error reply; line breaks in msg are flattened.
func (rw *replyWriter) Error(msg string) {
	rw.write("-", strings.NewReplacer("\r", " ", "\n", " ").Replace(msg), "\r\n")
}

func (rw *replyWriter) Integer(n int64) { rw.write(":", strconv.FormatInt(n, 10), "\r\n") }

func (rw *replyWriter) Nil() { rw.write("$-1\r\n") }

// Bulk writes b as a bulk string, or the nil bulk string when b is nil.
func (rw *replyWriter) Bulk(b []byte) {
	if b == nil {
		rw.Nil()
		return
	}
	rw.write("$", strconv.Itoa(len(b)), "\r\n", string(b), "\r\n")
}

func (rw *replyWriter) Array(n int) { rw.write("*", strconv.Itoa(n), "\r\n") }

func (rw *replyWriter) Flush() error {
	if rw.err != nil {
		return rw.err
	}
	return rw.w.Flush()
}

// commandName upper-cases an ASCII command name.
func commandName(b []byte) string {
	return strings.ToUpper(string(b))
}
