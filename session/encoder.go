package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const sessionFormatVersion1 = 1

func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(sessionFormatVersion1)

	if len(s.IdentityID) > 255 {
		return nil, errors.New("identity id too long")
	}
	buf.WriteByte(byte(len(s.IdentityID)))
	buf.WriteString(s.IdentityID)

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersion1 {
		return nil, errors.New("invalid session version")
	}

	s := &Session{}

	idLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	identityID := make([]byte, idLen)
	if _, err := io.ReadFull(reader, identityID); err != nil {
		return nil, err
	}
	s.IdentityID = string(identityID)

	if err := binary.Read(reader, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.ExpiresAt); err != nil {
		return nil, err
	}

	return s, nil
}
