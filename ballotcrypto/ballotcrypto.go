// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ballotcrypto

import (
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var (
	ErrMissingSecret = errors.New("vote encryption secret is required")
	ErrMalformed     = errors.New("malformed ballot ciphertext")
)

const (
	saltBytes        = 16 // 128 bits
	partialHashChars = 16

	encryptionInfo = "secure-poll ballot encryption v1"
	macInfo        = "secure-poll verification token v1"
)

// BallotData is the plaintext content of a ballot before sealing.
// It never carries a voter identifier.
type BallotData struct {
	PollID    int64     `json:"pollId"`
	OptionID  int64     `json:"optionId"`
	Timestamp time.Time `json:"timestamp"`
}

type saltedBallot struct {
	BallotData
	Salt string `json:"salt"`
}

// Sealer holds the keys derived from the process-wide vote secret.
// It is safe for concurrent use.
type Sealer struct {
	aead   cipher.AEAD
	macKey []byte
}

// NewSealer derives the encryption and MAC keys from secret.
// An empty secret is refused so the server fails at startup, not at first vote.
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}

	encKey, err := deriveKey(secret, encryptionInfo, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	macKey, err := deriveKey(secret, macInfo, sha256.Size)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(encKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create ballot cipher: %w", err)
	}

	return &Sealer{aead: aead, macKey: macKey}, nil
}

func deriveKey(secret, info string, size int) ([]byte, error) {
	key := make([]byte, size)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(info))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

// EncryptBallot seals the ballot merged with a fresh random salt.
// The same input never produces the same ciphertext twice.
func (s *Sealer) EncryptBallot(ballot BallotData) (ciphertext, salt string, err error) {
	saltRaw := make([]byte, saltBytes)
	if _, err := rand.Read(saltRaw); err != nil {
		return "", "", fmt.Errorf("failed to generate ballot salt: %w", err)
	}
	salt = hex.EncodeToString(saltRaw)

	plaintext, err := json.Marshal(saltedBallot{BallotData: ballot, Salt: salt})
	if err != nil {
		return "", "", fmt.Errorf("failed to encode ballot: %w", err)
	}

	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// nonce || sealed
	sealed := s.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), salt, nil
}

// DecryptBallot opens a ciphertext produced by EncryptBallot.
// Any failure, including a key mismatch, is reported as ErrMalformed.
func (s *Sealer) DecryptBallot(ciphertext string) (BallotData, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil {
		return BallotData{}, "", ErrMalformed
	}
	if len(raw) < s.aead.NonceSize()+s.aead.Overhead() {
		return BallotData{}, "", ErrMalformed
	}

	nonce, sealed := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return BallotData{}, "", ErrMalformed
	}

	var sb saltedBallot
	if err := json.Unmarshal(plaintext, &sb); err != nil {
		return BallotData{}, "", ErrMalformed
	}
	return sb.BallotData, sb.Salt, nil
}

// VerificationHash is a deterministic one-way hash over poll, option and salt.
// Voter identity and ciphertext are not inputs.
func VerificationHash(ballot BallotData, salt string) string {
	b, _ := json.Marshal(struct {
		PollID   int64  `json:"pollId"`
		OptionID int64  `json:"optionId"`
		Salt     string `json:"salt"`
	}{ballot.PollID, ballot.OptionID, salt})

	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// VerificationToken is an HMAC over the ballot id and the first 16 characters
// of its verification hash.
func (s *Sealer) VerificationToken(ballotID, hash string) string {
	partial := hash
	if len(partial) > partialHashChars {
		partial = partial[:partialHashChars]
	}

	b, _ := json.Marshal(struct {
		VoteID      string `json:"voteId"`
		PartialHash string `json:"partialHash"`
	}{ballotID, partial})

	mac := hmac.New(sha256.New, s.macKey)
	mac.Write(b)
	return hex.EncodeToString(mac.Sum(nil))
}

// CheckToken reports whether token was issued for ballotID and hash.
func (s *Sealer) CheckToken(ballotID, hash, token string) bool {
	return TokensEqual(s.VerificationToken(ballotID, hash), token)
}

// TokensEqual compares two tokens in constant time with respect to content.
func TokensEqual(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
