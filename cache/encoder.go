package cache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	// CurrentSchemaVersion is written by Encode.
	CurrentSchemaVersion uint8 = 2

	schemaVersionV1 uint8 = 1
)

const flagConfirmed byte = 1 << 0

var errFieldTooLong = errors.New("snapshot field too long")

// Encode serializes s using the current schema.
func Encode(s *Snapshot) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil snapshot")
	}

	var buf bytes.Buffer
	buf.Grow(1 + 2 + len(s.ID) + 2 + len(s.Email) + 1 + 8)

	buf.WriteByte(CurrentSchemaVersion)
	if err := writeString(&buf, s.ID); err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}
	if err := writeString(&buf, s.Email); err != nil {
		return nil, fmt.Errorf("email: %w", err)
	}

	var flags byte
	if s.Confirmed {
		flags |= flagConfirmed
	}
	buf.WriteByte(flags)

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a snapshot written by any supported schema version.
//
// v1: id, email, confirmed byte.
// v2: id, email, flags byte, created_at (int64 unix seconds).
func Decode(data []byte) (*Snapshot, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != CurrentSchemaVersion && version != schemaVersionV1 {
		return nil, fmt.Errorf("unsupported snapshot schema version %d", version)
	}

	s := &Snapshot{SchemaVersion: version}

	if s.ID, err = readString(reader); err != nil {
		return nil, err
	}
	if s.Email, err = readString(reader); err != nil {
		return nil, err
	}

	flags, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	s.Confirmed = flags&flagConfirmed != 0

	if version == CurrentSchemaVersion {
		if err := binary.Read(reader, binary.BigEndian, &s.CreatedAt); err != nil {
			return nil, err
		}
	}

	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes after snapshot")
	}

	return s, nil
}

func writeString(buf *bytes.Buffer, v string) error {
	if len(v) > math.MaxUint16 {
		return errFieldTooLong
	}
	var n [2]byte
	binary.BigEndian.PutUint16(n[:], uint16(len(v)))
	buf.Write(n[:])
	buf.WriteString(v)
	return nil
}

func readString(r *bytes.Reader) (string, error) {
	var n [2]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return "", err
	}
	size := int(binary.BigEndian.Uint16(n[:]))
	if size > r.Len() {
		return "", io.ErrUnexpectedEOF
	}
	b := make([]byte, size)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
