package resp

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrProtocol      = errors.New("resp: protocol error")
	ErrLimitExceeded = errors.New("resp: limit exceeded")
)

// Limits bounds what a single value may declare before the parser rejects
// it. A zero field falls back to the matching DefaultLimits field.
type Limits struct {
	MaxBulkLen   int // bytes in one bulk string
	MaxArrayLen  int // elements in one array
	MaxInlineLen int // bytes in one header or simple line
	MaxDepth     int // array nesting
}

var DefaultLimits = Limits{
	MaxBulkLen:   512 * 1024 * 1024,
	MaxArrayLen:  1024 * 1024,
	MaxInlineLen: 64 * 1024,
	MaxDepth:     64,
}

// Parse parses one value from the front of buf with DefaultLimits.
//
// It returns the value and the number of bytes it occupies. When buf holds
// only a prefix of a value, Parse returns (nil, 0, nil): nothing is consumed
// and the caller retries once more bytes have been appended. Malformed input
// returns an error wrapping ErrProtocol or ErrLimitExceeded.
func Parse(buf []byte) (Node, int, error) {
	return DefaultLimits.Parse(buf)
}

// Parse is like the package level Parse with l as the limits.
func (l Limits) Parse(buf []byte) (Node, int, error) {
	return l.withDefaults().parse(buf, 0)
}

func (l Limits) withDefaults() Limits {
	if l.MaxBulkLen <= 0 {
		l.MaxBulkLen = DefaultLimits.MaxBulkLen
	}
	if l.MaxArrayLen <= 0 {
		l.MaxArrayLen = DefaultLimits.MaxArrayLen
	}
	if l.MaxInlineLen <= 0 {
		l.MaxInlineLen = DefaultLimits.MaxInlineLen
	}
	if l.MaxDepth <= 0 {
		l.MaxDepth = DefaultLimits.MaxDepth
	}
	return l
}

func (l Limits) parse(buf []byte, depth int) (Node, int, error) {
	if len(buf) == 0 {
		return nil, 0, nil
	}

	switch buf[0] {
	case TypeSimple:
		text, n, err := l.readLine(buf)
		if err != nil || n == 0 {
			return nil, 0, err
		}
		return SimpleString{Value: string(text)}, n, nil

	case TypeError:
		text, n, err := l.readLine(buf)
		if err != nil || n == 0 {
			return nil, 0, err
		}
		return Error{Message: string(text)}, n, nil

	case TypeInteger:
		text, n, err := l.readLine(buf)
		if err != nil || n == 0 {
			return nil, 0, err
		}
		num, err := strconv.ParseInt(string(text), 10, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: invalid integer %q", ErrProtocol, text)
		}
		return Integer{Value: num}, n, nil

	case TypeBlob:
		size, n, err := l.readLength(buf, l.MaxBulkLen)
		if err != nil || n == 0 {
			return nil, 0, err
		}
		if size == -1 {
			return NullBlob{}, n, nil
		}
		end := n + size
		if len(buf) < end+2 {
			return nil, 0, nil
		}
		if buf[end] != '\r' || buf[end+1] != '\n' {
			return nil, 0, fmt.Errorf("%w: bulk string of %d bytes not terminated by CRLF", ErrProtocol, size)
		}
		return BlobString{Value: string(buf[n:end])}, end + 2, nil

	case TypeArray:
		if depth >= l.MaxDepth {
			return nil, 0, fmt.Errorf("%w: array nesting exceeds %d", ErrLimitExceeded, l.MaxDepth)
		}
		count, n, err := l.readLength(buf, l.MaxArrayLen)
		if err != nil || n == 0 {
			return nil, 0, err
		}
		if count == -1 {
			return NullArray{}, n, nil
		}

		// count is untrusted until the elements arrive
		elements := make([]Node, 0, min(count, 64))
		for i := 0; i < count; i++ {
			elem, m, err := l.parse(buf[n:], depth+1)
			if err != nil {
				return nil, 0, err
			}
			if m == 0 {
				return nil, 0, nil
			}
			elements = append(elements, elem)
			n += m
		}
		return Array{Elements: elements}, n, nil

	default:
		return nil, 0, fmt.Errorf("%w: unknown type byte %q", ErrProtocol, buf[0])
	}
}

// readLine returns the text between the type byte and the first CRLF, and
// the length of the whole line including both markers. n is 0 when no CRLF
// has arrived yet.
func (l Limits) readLine(buf []byte) (text []byte, n int, err error) {
	idx := bytes.Index(buf[1:], []byte(CRLF))
	if idx < 0 {
		pending := len(buf) - 1
		if buf[len(buf)-1] == '\r' {
			pending-- // may be the first half of the CRLF
		}
		if pending > l.MaxInlineLen {
			return nil, 0, fmt.Errorf("%w: line length exceeds %d", ErrLimitExceeded, l.MaxInlineLen)
		}
		return nil, 0, nil
	}
	if idx > l.MaxInlineLen {
		return nil, 0, fmt.Errorf("%w: line length exceeds %d", ErrLimitExceeded, l.MaxInlineLen)
	}
	return buf[1 : 1+idx], 1 + idx + len(CRLF), nil
}

// readLength reads a `$` or `*` header. -1 is the null sentinel.
func (l Limits) readLength(buf []byte, max int) (length int, n int, err error) {
	text, n, err := l.readLine(buf)
	if err != nil || n == 0 {
		return 0, 0, err
	}
	length, err = strconv.Atoi(string(text))
	if err != nil || len(text) == 0 || text[0] == '+' {
		return 0, 0, fmt.Errorf("%w: invalid length %q", ErrProtocol, text)
	}
	if length < -1 {
		return 0, 0, fmt.Errorf("%w: negative length %d", ErrProtocol, length)
	}
	if length > max {
		return 0, 0, fmt.Errorf("%w: length %d exceeds %d", ErrLimitExceeded, length, max)
	}
	return length, n, nil
}
