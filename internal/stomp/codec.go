package stomp

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Writer serializes frames onto a stream.
type Writer struct {
	w io.Writer
}

// NewWriter wraps w for frame writing.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteFrame serializes one frame. A content-length header is added for any
// non-empty body so bodies may contain NUL bytes. Headers are written in
// sorted order so output is deterministic.
func (w *Writer) WriteFrame(f *Frame) error {
	var buf bytes.Buffer
	buf.WriteString(f.Command)
	buf.WriteByte('\n')

	names := make([]string, 0, len(f.Headers))
	for name := range f.Headers {
		names = append(names, name)
	}
	sort.Strings(names)

	escape := escapesHeaders(f.Command)
	for _, name := range names {
		value := f.Headers[name]
		if escape {
			name = escapeHeader(name)
			value = escapeHeader(value)
		}
		buf.WriteString(name)
		buf.WriteByte(':')
		buf.WriteString(value)
		buf.WriteByte('\n')
	}
	if len(f.Body) > 0 {
		if _, ok := f.Headers[HdrContentLength]; !ok {
			buf.WriteString(HdrContentLength)
			buf.WriteByte(':')
			buf.WriteString(strconv.Itoa(len(f.Body)))
			buf.WriteByte('\n')
		}
	}
	buf.WriteByte('\n')
	buf.Write(f.Body)
	buf.WriteByte(0)

	_, err := w.w.Write(buf.Bytes())
	return err
}

// WriteHeartbeat emits a single heart-beat newline.
func (w *Writer) WriteHeartbeat() error {
	_, err := w.w.Write([]byte{'\n'})
	return err
}

// Reader parses frames from a stream.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps r for frame reading.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadFrame reads the next frame, skipping heart-beat newlines between
// frames. It blocks until a full frame arrives or the stream errors.
func (r *Reader) ReadFrame() (*Frame, error) {
	command, err := r.readCommand()
	if err != nil {
		return nil, err
	}

	f := &Frame{Command: command, Headers: make(map[string]string)}
	unescape := escapesHeaders(command)
	for {
		line, err := r.readLine()
		if err != nil {
			return nil, err
		}
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed header line %q", line)
		}
		if unescape {
			if name, err = unescapeHeader(name); err != nil {
				return nil, err
			}
			if value, err = unescapeHeader(value); err != nil {
				return nil, err
			}
		}
		// First occurrence wins, per STOMP 1.2.
		if _, exists := f.Headers[name]; !exists {
			f.Headers[name] = value
		}
	}

	if n, ok := f.ContentLength(); ok {
		body := make([]byte, n)
		if _, err := io.ReadFull(r.r, body); err != nil {
			return nil, fmt.Errorf("read frame body: %w", err)
		}
		f.Body = body
		term, err := r.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if term != 0 {
			return nil, fmt.Errorf("frame body not NUL-terminated (got 0x%02x)", term)
		}
		return f, nil
	}

	body, err := r.r.ReadBytes(0)
	if err != nil {
		return nil, fmt.Errorf("read frame body: %w", err)
	}
	f.Body = body[:len(body)-1]
	return f, nil
}

// readCommand skips blank heart-beat lines and returns the command line.
func (r *Reader) readCommand() (string, error) {
	for {
		line, err := r.readLine()
		if err != nil {
			return "", err
		}
		if line != "" {
			return line, nil
		}
	}
}

func (r *Reader) readLine() (string, error) {
	line, err := r.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r"), nil
}
