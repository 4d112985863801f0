package helpers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"time"
)

const (
	signaturePrefix = "HMACSHA256="
	timestampLayout = "2006-01-02T15:04:05Z"
)

var ErrInvalidSignature = errors.New("invalid signature")

// PaymentSigner signs and checks payment provider callbacks. The signature
// covers the request id, timestamp, target path and body digest.
type PaymentSigner struct {
	SecretKey string
	MaxSkew   time.Duration
}

func NewPaymentSigner(secretKey string) *PaymentSigner {
	return &PaymentSigner{
		SecretKey: secretKey,
		MaxSkew:   5 * time.Minute,
	}
}

func (s *PaymentSigner) GenerateDigest(body []byte) string {
	hash := sha256.Sum256(body)
	return base64.StdEncoding.EncodeToString(hash[:])
}

func (s *PaymentSigner) GenerateSignature(requestID string, timestamp time.Time, requestPath, digest string) string {
	componentSignature := "Request-Id:" + requestID + "\n" +
		"Request-Timestamp:" + timestamp.UTC().Format(timestampLayout) + "\n" +
		"Request-Target:" + requestPath + "\n" +
		"Digest:" + digest

	mac := hmac.New(sha256.New, []byte(s.SecretKey))
	mac.Write([]byte(componentSignature))
	return signaturePrefix + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (s *PaymentSigner) GetHeaders(requestID string, timestamp time.Time, requestPath string, body []byte) map[string]string {
	digest := s.GenerateDigest(body)
	return map[string]string{
		"Request-Id":        requestID,
		"Request-Timestamp": timestamp.UTC().Format(timestampLayout),
		"Digest":            digest,
		"Signature":         s.GenerateSignature(requestID, timestamp, requestPath, digest),
		"Content-Type":      "application/json",
	}
}

// Verify checks a callback's headers against its body as received at now.
func (s *PaymentSigner) Verify(headers map[string]string, requestPath string, body []byte, now time.Time) error {
	requestID := headers["Request-Id"]
	if requestID == "" {
		return ErrInvalidSignature
	}

	timestamp, err := time.Parse(timestampLayout, headers["Request-Timestamp"])
	if err != nil {
		return ErrInvalidSignature
	}
	if skew := now.Sub(timestamp); skew > s.MaxSkew || skew < -s.MaxSkew {
		return ErrInvalidSignature
	}

	digest := s.GenerateDigest(body)
	if !hmac.Equal([]byte(digest), []byte(headers["Digest"])) {
		return ErrInvalidSignature
	}

	expected := s.GenerateSignature(requestID, timestamp, requestPath, digest)
	if !hmac.Equal([]byte(expected), []byte(headers["Signature"])) {
		return ErrInvalidSignature
	}
	return nil
}
