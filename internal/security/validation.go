package security

import (
	"errors"
	"fmt"
)

// Payload limits applied to backend replies before they are decoded.
const (
	DefaultMaxPayloadSize = 16 << 20
	DefaultMaxJSONDepth   = 64
)

// Payload errors.
var (
	ErrPayloadTooLarge = errors.New("payload exceeds maximum size")
	ErrJSONTooDeep     = errors.New("JSON nesting exceeds maximum depth")
	ErrInvalidJSON     = errors.New("invalid JSON")
)

// PayloadLimits bounds an untrusted JSON document. Zero fields select the
// defaults.
type PayloadLimits struct {
	MaxSize  int
	MaxDepth int
}

func (l PayloadLimits) maxSize() int {
	if l.MaxSize <= 0 {
		return DefaultMaxPayloadSize
	}
	return l.MaxSize
}

func (l PayloadLimits) maxDepth() int {
	if l.MaxDepth <= 0 {
		return DefaultMaxJSONDepth
	}
	return l.MaxDepth
}

// Check reports the first limit data violates. Nesting is measured in one
// pass over the raw bytes, skipping string contents. Brackets must balance;
// other syntax errors are left to the decoder.
func (l PayloadLimits) Check(data []byte) error {
	if limit := l.maxSize(); len(data) > limit {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(data), limit)
	}

	limit := l.maxDepth()
	var (
		open     []byte
		inString bool
		escaped  bool
	)
	for i, c := range data {
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{', '[':
			if len(open) == limit {
				return fmt.Errorf("%w: depth %d (max %d)", ErrJSONTooDeep, limit+1, limit)
			}
			open = append(open, c)
		case '}', ']':
			want := byte('{')
			if c == ']' {
				want = '['
			}
			if len(open) == 0 || open[len(open)-1] != want {
				return fmt.Errorf("%w: unexpected %q at offset %d", ErrInvalidJSON, c, i)
			}
			open = open[:len(open)-1]
		}
	}

	if inString {
		return fmt.Errorf("%w: unterminated string", ErrInvalidJSON)
	}
	if len(open) > 0 {
		return fmt.Errorf("%w: %d unclosed brackets", ErrInvalidJSON, len(open))
	}
	return nil
}
