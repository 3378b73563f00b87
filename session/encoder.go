package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const sessionFormatVersion = 1

// ErrSessionCorrupt is returned when a stored session blob cannot be
// decoded.
var ErrSessionCorrupt = errors.New("session blob corrupt")

// Encode serializes a Session into the compact binary wire format:
// version byte, length-prefixed account and tenant IDs, the two 32-byte
// hashes, then three big-endian int64 timestamps.
func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(sessionFormatVersion)

	if len(s.AccountID) > 255 {
		return nil, errors.New("accountID too long")
	}
	buf.WriteByte(byte(len(s.AccountID)))
	buf.WriteString(s.AccountID)

	if len(s.TenantID) > 255 {
		return nil, errors.New("tenantID too long")
	}
	buf.WriteByte(byte(len(s.TenantID)))
	buf.WriteString(s.TenantID)

	buf.Write(s.PermHash[:])
	buf.Write(s.DeviceHash[:])

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.LastSeenAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a session blob produced by Encode.
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, ErrSessionCorrupt
	}
	if version != sessionFormatVersion {
		return nil, ErrSessionCorrupt
	}

	s := &Session{}

	accountLen, err := reader.ReadByte()
	if err != nil {
		return nil, ErrSessionCorrupt
	}
	accountID := make([]byte, accountLen)
	if _, err := io.ReadFull(reader, accountID); err != nil {
		return nil, ErrSessionCorrupt
	}
	s.AccountID = string(accountID)

	tenantLen, err := reader.ReadByte()
	if err != nil {
		return nil, ErrSessionCorrupt
	}
	tenantID := make([]byte, tenantLen)
	if _, err := io.ReadFull(reader, tenantID); err != nil {
		return nil, ErrSessionCorrupt
	}
	s.TenantID = string(tenantID)

	if _, err := io.ReadFull(reader, s.PermHash[:]); err != nil {
		return nil, ErrSessionCorrupt
	}
	if _, err := io.ReadFull(reader, s.DeviceHash[:]); err != nil {
		return nil, ErrSessionCorrupt
	}

	if err := binary.Read(reader, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, ErrSessionCorrupt
	}
	if err := binary.Read(reader, binary.BigEndian, &s.LastSeenAt); err != nil {
		return nil, ErrSessionCorrupt
	}
	if err := binary.Read(reader, binary.BigEndian, &s.ExpiresAt); err != nil {
		return nil, ErrSessionCorrupt
	}

	return s, nil
}
