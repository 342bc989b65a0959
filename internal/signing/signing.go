// Package signing issues and checks HMAC-signed, expiring file URLs. The
// development server uses them to expose PDFs without a bearer token so the
// direct preview strategy has something public to open.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

var (
	ErrMissingParams = errors.New("missing signature parameters")
	ErrExpired       = errors.New("url expired")
	ErrBadSignature  = errors.New("invalid signature")
)

// Signer generates and validates HMAC based signatures.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner creates a Signer.
func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret, now: time.Now}
}

// Sign returns the hex signature for a record id and expiry.
func (s *Signer) Sign(recordID string, expiresUnix int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s:%d", recordID, expiresUnix)
	return hex.EncodeToString(mac.Sum(nil))
}

// Validate compares the provided signature with the expected one.
func (s *Signer) Validate(recordID, expires, signature string) bool {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return false
	}
	expected := s.Sign(recordID, exp)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignedPath returns base + "/" + id with expires and signature parameters
// valid for ttl.
func (s *Signer) SignedPath(base, recordID string, ttl time.Duration) string {
	expiry := s.now().Add(ttl).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expiry, 10))
	q.Set("signature", s.Sign(recordID, expiry))
	return base + "/" + url.PathEscape(recordID) + "?" + q.Encode()
}

// Verify checks the query of a signed URL for recordID.
func (s *Signer) Verify(recordID string, query url.Values) error {
	expires := query.Get("expires")
	signature := query.Get("signature")
	if expires == "" || signature == "" {
		return ErrMissingParams
	}
	expiryUnix, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	if time.Unix(expiryUnix, 0).Before(s.now()) {
		return ErrExpired
	}
	if !s.Validate(recordID, expires, signature) {
		return ErrBadSignature
	}
	return nil
}
