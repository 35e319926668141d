// Package stomp implements the subset of STOMP 1.2 framing the campus
// message bus speaks: client CONNECT/SEND/SUBSCRIBE/UNSUBSCRIBE/DISCONNECT
// and server CONNECTED/MESSAGE/RECEIPT/ERROR, with null-terminated frames
// and heart-beat newlines between them.
package stomp

import (
	"fmt"
	"strconv"
	"strings"
)

// Frame commands used by the bus.
const (
	CmdConnect     = "CONNECT"
	CmdConnected   = "CONNECTED"
	CmdSend        = "SEND"
	CmdSubscribe   = "SUBSCRIBE"
	CmdUnsubscribe = "UNSUBSCRIBE"
	CmdDisconnect  = "DISCONNECT"
	CmdMessage     = "MESSAGE"
	CmdReceipt     = "RECEIPT"
	CmdError       = "ERROR"
)

// Common header names.
const (
	HdrDestination   = "destination"
	HdrSubscription  = "subscription"
	HdrID            = "id"
	HdrContentType   = "content-type"
	HdrContentLength = "content-length"
	HdrAcceptVersion = "accept-version"
	HdrHeartBeat     = "heart-beat"
	HdrAuthorization = "Authorization"
	HdrMessage       = "message"
)

// Frame is a single STOMP frame.
type Frame struct {
	Command string
	Headers map[string]string
	Body    []byte
}

// NewFrame builds a frame from alternating header key/value pairs.
func NewFrame(command string, headers ...string) *Frame {
	f := &Frame{Command: command, Headers: make(map[string]string, len(headers)/2)}
	for i := 0; i+1 < len(headers); i += 2 {
		f.Headers[headers[i]] = headers[i+1]
	}
	return f
}

// Header returns the named header value, or "" if absent.
func (f *Frame) Header(name string) string {
	return f.Headers[name]
}

// ContentLength returns the content-length header value and whether it was
// present and valid.
func (f *Frame) ContentLength() (int, bool) {
	v, ok := f.Headers[HdrContentLength]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (f *Frame) String() string {
	return fmt.Sprintf("%s frame (%d headers, %d body bytes)", f.Command, len(f.Headers), len(f.Body))
}

// escapesHeaders reports whether the frame's headers use the 1.2 escape
// sequences. CONNECT and CONNECTED are exempt in STOMP 1.2 for 1.0 compat.
func escapesHeaders(command string) bool {
	return command != CmdConnect && command != CmdConnected
}

var headerEscaper = strings.NewReplacer(
	`\`, `\\`,
	"\r", `\r`,
	"\n", `\n`,
	":", `\c`,
)

func escapeHeader(v string) string {
	return headerEscaper.Replace(v)
}

func unescapeHeader(v string) (string, error) {
	if !strings.ContainsRune(v, '\\') {
		return v, nil
	}
	var b strings.Builder
	b.Grow(len(v))
	for i := 0; i < len(v); i++ {
		if v[i] != '\\' {
			b.WriteByte(v[i])
			continue
		}
		i++
		if i >= len(v) {
			return "", fmt.Errorf("dangling escape in header value %q", v)
		}
		switch v[i] {
		case 'r':
			b.WriteByte('\r')
		case 'n':
			b.WriteByte('\n')
		case 'c':
			b.WriteByte(':')
		case '\\':
			b.WriteByte('\\')
		default:
			return "", fmt.Errorf("invalid escape \\%c in header value %q", v[i], v)
		}
	}
	return b.String(), nil
}
