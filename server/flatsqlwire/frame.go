package flatsqlwire

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize bounds a single frame body.
const MaxFrameSize = 8 << 20 // 8 MiB

const headerSize = 4

var (
	ErrEmptyFrame    = errors.New("flatsqlwire: empty frame")
	ErrFrameTooLarge = errors.New("flatsqlwire: frame too large")
)

// ReadFrame reads one frame: a big-endian uint32 body length, then a JSON body.
func ReadFrame(r io.Reader, v any) error {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return err
	}

	n := binary.BigEndian.Uint32(hdr[:])
	switch {
	case n == 0:
		return ErrEmptyFrame
	case n > MaxFrameSize:
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, n, MaxFrameSize)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("flatsqlwire: bad json: %w", err)
	}
	return nil
}

// WriteFrame encodes v and writes header and body with a single Write.
func WriteFrame(w io.Writer, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("flatsqlwire: marshal: %w", err)
	}
	if len(body) > MaxFrameSize {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, len(body), MaxFrameSize)
	}

	buf := make([]byte, headerSize+len(body))
	binary.BigEndian.PutUint32(buf[:headerSize], uint32(len(body)))
	copy(buf[headerSize:], body)

	_, err = w.Write(buf)
	return err
}
