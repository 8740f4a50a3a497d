package proto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Framing selects how JSON objects are delimited on a stream connection.
type Framing string

const (
	// FramingSplice writes objects back to back and splits reads on "}{".
	// It is what existing subscribers speak.
	FramingSplice Framing = "splice"
	// FramingLine terminates every object with '\n' and buffers partial
	// lines across reads.
	FramingLine Framing = "line"
)

// DefaultMaxFrame is the read buffer size and the largest supported command.
const DefaultMaxFrame = 4096

// Reasons a fragment was dropped.
const (
	ReasonParse    = "parse"
	ReasonEncoding = "encoding"
	ReasonOversize = "oversize"
)

var (
	ErrUnknownFraming = errors.New("unknown framing")
	ErrFrameTooLarge  = errors.New("frame too large")
	errMissingField   = errors.New("missing field")
)

// ParseFraming validates a framing name. Empty selects FramingSplice.
func ParseFraming(name string) (Framing, error) {
	switch Framing(strings.ToLower(strings.TrimSpace(name))) {
	case "", FramingSplice:
		return FramingSplice, nil
	case FramingLine:
		return FramingLine, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFraming, name)
	}
}

// FrameError describes an inbound fragment that was dropped.
type FrameError struct {
	Reason   string
	Fragment string
	Err      error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("drop %s fragment %q: %v", e.Reason, e.Fragment, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// Decoder turns raw reads of one connection into messages. A decoder keeps
// per-connection state and must not be shared.
type Decoder interface {
	Feed(chunk []byte) ([]Message, []*FrameError)
}

// NewDecoder returns a decoder for the framing. maxFrame bounds a buffered
// line in FramingLine; <= 0 selects DefaultMaxFrame.
func NewDecoder(f Framing, maxFrame int) Decoder {
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrame
	}
	if f == FramingLine {
		return &lineDecoder{max: maxFrame}
	}
	return spliceDecoder{}
}

// Encode serializes m for the framing. HTML characters are not escaped so
// sentinel senders such as "<file>" stay readable on the wire.
func Encode(f Framing, m Message) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	out := buf.Bytes()
	if f != FramingLine {
		out = bytes.TrimSuffix(out, []byte("\n"))
	}
	return out, nil
}

// SplitFrames splits text that may hold several back-to-back JSON objects.
// Every fragment but the first gets its leading '{' back and every fragment
// but the last gets its trailing '}' back.
func SplitFrames(text string) []string {
	parts := strings.Split(text, "}{")
	last := len(parts) - 1
	for i, p := range parts {
		if i > 0 {
			p = "{" + p
		}
		if i < last {
			p += "}"
		}
		parts[i] = p
	}
	return parts
}

type spliceDecoder struct{}

// Feed decodes the objects contained in one read. A fragment split across
// reads fails to parse and is dropped; nothing is carried to the next read.
func (spliceDecoder) Feed(chunk []byte) ([]Message, []*FrameError) {
	if !utf8.Valid(chunk) {
		return nil, []*FrameError{{
			Reason:   ReasonEncoding,
			Fragment: string(chunk),
			Err:      errors.New("invalid utf-8"),
		}}
	}

	var (
		out  []Message
		errs []*FrameError
	)
	for _, frame := range SplitFrames(string(chunk)) {
		msg, err := decodeFrame([]byte(frame))
		if err != nil {
			errs = append(errs, &FrameError{Reason: ReasonParse, Fragment: frame, Err: err})
			continue
		}
		out = append(out, msg)
	}
	return out, errs
}

type lineDecoder struct {
	buf []byte
	max int
}

func (d *lineDecoder) Feed(chunk []byte) ([]Message, []*FrameError) {
	var (
		out  []Message
		errs []*FrameError
	)

	d.buf = append(d.buf, chunk...)
	for {
		idx := bytes.IndexByte(d.buf, '\n')
		if idx < 0 {
			break
		}
		line := bytes.TrimSpace(d.buf[:idx])
		d.buf = d.buf[idx+1:]
		if len(line) == 0 {
			continue
		}
		if len(line) > d.max {
			errs = append(errs, &FrameError{Reason: ReasonOversize, Fragment: truncate(line, 64), Err: ErrFrameTooLarge})
			continue
		}
		if !utf8.Valid(line) {
			errs = append(errs, &FrameError{Reason: ReasonEncoding, Fragment: string(line), Err: errors.New("invalid utf-8")})
			continue
		}
		msg, err := decodeFrame(line)
		if err != nil {
			errs = append(errs, &FrameError{Reason: ReasonParse, Fragment: string(line), Err: err})
			continue
		}
		out = append(out, msg)
	}

	if len(d.buf) > d.max {
		errs = append(errs, &FrameError{Reason: ReasonOversize, Fragment: truncate(d.buf, 64), Err: ErrFrameTooLarge})
		d.buf = nil
	} else if len(d.buf) > 0 {
		d.buf = append([]byte(nil), d.buf...)
	} else {
		d.buf = nil
	}

	return out, errs
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

type wireMessage struct {
	Sender  *string `json:"sender"`
	Content *string `json:"content"`
	ChatID  *string `json:"chat_id"`
}

// Decode parses a single message object, as carried by one websocket
// message or one HTTP body.
func Decode(data []byte) (Message, error) {
	return decodeFrame(data)
}

// decodeFrame parses one object. All three fields are required; unknown
// fields are ignored.
func decodeFrame(frame []byte) (Message, error) {
	var w wireMessage
	if err := json.Unmarshal(frame, &w); err != nil {
		return Message{}, err
	}
	switch {
	case w.Sender == nil:
		return Message{}, fmt.Errorf("%w: sender", errMissingField)
	case w.Content == nil:
		return Message{}, fmt.Errorf("%w: content", errMissingField)
	case w.ChatID == nil:
		return Message{}, fmt.Errorf("%w: chat_id", errMissingField)
	}
	return Message{Sender: *w.Sender, Content: *w.Content, ChatID: *w.ChatID}, nil
}
