package pki

import (
	"crypto/rand"
	"math/big"
	"time"

	"github.com/wolfeidau/sailor/internal/fault"
)

// SerialBits is the number of random bits in every serial number. 159 bits
// keeps the DER INTEGER within the 20 octet limit of RFC 5280 4.1.2.2.
const SerialBits = 159

// NewSerialNumber returns a fresh non-negative random serial number.
func NewSerialNumber() (*big.Int, error) {
	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), SerialBits))
	if err != nil {
		return nil, fault.Wrap(fault.Crypto, err, "failed to generate serial number")
	}
	return serialNumber, nil
}

// Validity returns the not-before and not-after bounds for a certificate
// valid for days starting at now. Certificates carry second precision so
// now is truncated first.
func Validity(now time.Time, days int) (notBefore, notAfter time.Time) {
	notBefore = now.UTC().Truncate(time.Second)
	notAfter = notBefore.Add(time.Duration(days) * 24 * time.Hour)
	return notBefore, notAfter
}
