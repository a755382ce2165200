package payload

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/accordhq/accord/internal/config"
)

// Signer binds an invoice id to its owner and amount in a compact
// tamper-evident token. Verification proves only that this service signed
// the tuple; the invoice store's status stays the authority on settlement.
type Signer struct {
	secret []byte
}

// NewSigner refuses weak or placeholder secrets so the process fails at
// construction rather than signing with a throwaway key.
func NewSigner(cfg config.Config) (*Signer, error) {
	if err := config.ValidateSecret(cfg.SigningSecret); err != nil {
		return nil, err
	}
	return &Signer{secret: []byte(cfg.SigningSecret)}, nil
}

func (s *Signer) canonical(invoiceID string, ownerID int64, amount int64) []byte {
	return []byte(fmt.Sprintf("v1|%s|%d|%d", invoiceID, ownerID, amount))
}

func (s *Signer) mac(msg []byte) []byte {
	h := hmac.New(sha256.New, s.secret)
	h.Write(msg)
	return h.Sum(nil)
}

// Sign produces `<base64url(data)>.<hex(mac)>` over the tuple.
func (s *Signer) Sign(invoiceID string, ownerID int64, amount int64) string {
	data := s.canonical(invoiceID, ownerID, amount)
	return base64.RawURLEncoding.EncodeToString(data) + "." + hex.EncodeToString(s.mac(data))
}

// Verify recomputes the MAC for the claimed tuple and compares in constant
// time. Any structural defect in the token fails closed.
func (s *Signer) Verify(token, invoiceID string, ownerID int64, amount int64) bool {
	dataPart, macPart, ok := strings.Cut(token, ".")
	if !ok {
		return false
	}
	data, err := base64.RawURLEncoding.DecodeString(dataPart)
	if err != nil {
		return false
	}
	gotMAC, err := hex.DecodeString(macPart)
	if err != nil {
		return false
	}

	expected := s.canonical(invoiceID, ownerID, amount)
	if !hmac.Equal(data, expected) {
		return false
	}
	return hmac.Equal(gotMAC, s.mac(expected))
}
