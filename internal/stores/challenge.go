package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	challengeRecordVersion1 = 1
)

// ChallengePurpose scopes a challenge to the ceremony that issued it. A
// registration challenge can never satisfy an authentication finish and vice
// versa.
type ChallengePurpose uint8

const (
	PurposeRegistration   ChallengePurpose = 1
	PurposeAuthentication ChallengePurpose = 2
)

var (
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrChallengeBackend  = errors.New("challenge backend unavailable")
)

// Challenge is a pending one-time ceremony challenge.
type Challenge struct {
	Purpose   ChallengePurpose
	IssuedAt  int64
	ExpiresAt int64
	Value     []byte
}

// ChallengeStore persists pending challenges in Redis, keyed by subject. One
// pending challenge per subject: a new Save overwrites the previous one.
type ChallengeStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewChallengeStore(redisClient redis.UniversalClient, prefix string) *ChallengeStore {
	if prefix == "" {
		prefix = "pkc"
	}
	return &ChallengeStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *ChallengeStore) key(subject string) string {
	return s.prefix + ":challenge:" + subject
}

func (s *ChallengeStore) Save(ctx context.Context, subject string, record *Challenge, ttl time.Duration) error {
	encoded, err := encodeChallenge(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(subject), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	return nil
}

// Consume atomically fetches and deletes the pending challenge for subject.
// The record is gone before the caller inspects it, so a losing verification
// cannot be retried against the same challenge. Missing, already-consumed,
// and expired records all return ErrChallengeNotFound.
func (s *ChallengeStore) Consume(ctx context.Context, subject string) (*Challenge, error) {
	data, err := s.redis.GetDel(ctx, s.key(subject)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}

	record, err := decodeChallenge(data)
	if err != nil {
		return nil, err
	}
	if time.Now().Unix() > record.ExpiresAt {
		return nil, ErrChallengeNotFound
	}
	return record, nil
}

// Delete removes a pending challenge without returning it.
func (s *ChallengeStore) Delete(ctx context.Context, subject string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(subject)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	return n > 0, nil
}

func encodeChallenge(record *Challenge) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(challengeRecordVersion1)
	buf.WriteByte(byte(record.Purpose))

	if err := binary.Write(&buf, binary.BigEndian, record.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	if len(record.Value) > 65535 {
		return nil, errors.New("challenge value length exceeded")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.Value))); err != nil {
		return nil, err
	}
	buf.Write(record.Value)

	return buf.Bytes(), nil
}

func decodeChallenge(data []byte) (*Challenge, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != challengeRecordVersion1 {
		return nil, errors.New("invalid challenge record version")
	}

	purpose, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	switch ChallengePurpose(purpose) {
	case PurposeRegistration, PurposeAuthentication:
	default:
		return nil, errors.New("invalid challenge purpose")
	}

	record := &Challenge{Purpose: ChallengePurpose(purpose)}
	if err := binary.Read(reader, binary.BigEndian, &record.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	var valueLen uint16
	if err := binary.Read(reader, binary.BigEndian, &valueLen); err != nil {
		return nil, err
	}
	value := make([]byte, valueLen)
	if _, err := io.ReadFull(reader, value); err != nil {
		return nil, err
	}
	record.Value = value

	return record, nil
}
