package pki

import (
	"crypto/x509"
	"encoding/asn1"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/sailor/internal/fault"
)

func subjectAltNames(t *testing.T, cert *x509.Certificate) []asn1.RawValue {
	t.Helper()

	ext, err := FindExtension(cert, OIDExtSubjectAltName)
	require.NoError(t, err)
	assert.False(t, ext.Critical)

	var seq asn1.RawValue
	_, err = asn1.Unmarshal(ext.Value, &seq)
	require.NoError(t, err)

	var names []asn1.RawValue
	rest := seq.Bytes
	for len(rest) > 0 {
		var name asn1.RawValue
		rest, err = asn1.Unmarshal(rest, &name)
		require.NoError(t, err)
		names = append(names, name)
	}
	return names
}

func TestIssueCertificate(t *testing.T) {
	profile := testProfile()
	ca, err := CreateCACertificate(profile)
	require.NoError(t, err)

	leaf, err := IssueCertificate(profile, ca, LeafRequest{
		CommonName:   "node1",
		ExpiryInDays: 10,
		DNSNames:     []string{"node1.local"},
		IPAddresses:  []string{"10.0.0.5"},
	})
	require.NoError(t, err)

	t.Run("issuer is the CA", func(t *testing.T) {
		assert.Equal(t, ca.Cert.RawSubject, leaf.Cert.RawIssuer)
		assert.Equal(t, "node1", leaf.Cert.Subject.CommonName)
		require.NoError(t, leaf.Cert.CheckSignatureFrom(ca.Cert))
	})

	t.Run("key matches certificate", func(t *testing.T) {
		require.NoError(t, leaf.Verify())
		assert.NotEqual(t, ca.Cert.SubjectKeyId, leaf.Cert.SubjectKeyId)
	})

	t.Run("validates against the CA alone", func(t *testing.T) {
		roots := x509.NewCertPool()
		roots.AddCert(ca.Cert)

		_, err := leaf.Cert.Verify(x509.VerifyOptions{
			Roots:     roots,
			KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
		})
		require.NoError(t, err)
	})

	t.Run("extension order and criticality", func(t *testing.T) {
		assert.Equal(t, []asn1.ObjectIdentifier{
			OIDExtBasicConstraints,
			OIDExtKeyUsage,
			OIDExtSubjectKeyID,
			OIDExtAuthorityKeyID,
			OIDExtSubjectAltName,
		}, extensionIDs(leaf.Cert))

		bc, err := FindExtension(leaf.Cert, OIDExtBasicConstraints)
		require.NoError(t, err)
		assert.False(t, bc.Critical)
		assert.False(t, leaf.Cert.IsCA)

		ku, err := FindExtension(leaf.Cert, OIDExtKeyUsage)
		require.NoError(t, err)
		assert.True(t, ku.Critical)
		assert.Equal(t, x509.KeyUsageDigitalSignature|x509.KeyUsageContentCommitment|x509.KeyUsageKeyEncipherment, leaf.Cert.KeyUsage)
	})

	t.Run("authority key identifier points at the CA", func(t *testing.T) {
		aki, issuer := parseAuthorityKeyID(t, leaf.Cert)
		assert.Equal(t, ca.Cert.SubjectKeyId, aki.KeyID)
		assert.Equal(t, ca.Cert.RawIssuer, issuer)
		assert.Equal(t, 0, ca.Cert.SerialNumber.Cmp(aki.Serial))
	})

	t.Run("subject alt names keep dns before ip", func(t *testing.T) {
		names := subjectAltNames(t, leaf.Cert)
		require.Len(t, names, 2)

		assert.Equal(t, 2, names[0].Tag)
		assert.Equal(t, "node1.local", string(names[0].Bytes))
		assert.Equal(t, 7, names[1].Tag)
		assert.Equal(t, net.IPv4(10, 0, 0, 5).To4(), net.IP(names[1].Bytes))
	})
}

func TestIssueCertificateSubjectAltNames(t *testing.T) {
	profile := testProfile()
	ca, err := CreateCACertificate(profile)
	require.NoError(t, err)

	t.Run("duplicates and order are kept", func(t *testing.T) {
		leaf, err := IssueCertificate(profile, ca, LeafRequest{
			CommonName:   "node2",
			ExpiryInDays: 1,
			DNSNames:     []string{"b.local", "a.local", "b.local"},
			IPAddresses:  []string{"::1", "10.0.0.1"},
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"b.local", "a.local", "b.local"}, leaf.Cert.DNSNames)
		names := subjectAltNames(t, leaf.Cert)
		require.Len(t, names, 5)
		assert.Len(t, names[3].Bytes, net.IPv6len)
		assert.Len(t, names[4].Bytes, net.IPv4len)
	})

	t.Run("extension omitted when empty", func(t *testing.T) {
		leaf, err := IssueCertificate(profile, ca, LeafRequest{
			CommonName:   "node-client",
			ExpiryInDays: 1,
		})
		require.NoError(t, err)

		_, err = FindExtension(leaf.Cert, OIDExtSubjectAltName)
		require.ErrorIs(t, err, ErrExtensionNotFound)
	})

	t.Run("invalid ip literal", func(t *testing.T) {
		_, err := IssueCertificate(profile, ca, LeafRequest{
			CommonName:   "node3",
			ExpiryInDays: 1,
			IPAddresses:  []string{"10.0.0.999"},
		})
		require.Error(t, err)
		assert.True(t, fault.Is(err, fault.Crypto))
	})
}

func TestIssueCertificateErrors(t *testing.T) {
	profile := testProfile()
	ca, err := CreateCACertificate(profile)
	require.NoError(t, err)

	t.Run("mismatched CA pair", func(t *testing.T) {
		other, err := CreateCACertificate(profile)
		require.NoError(t, err)

		_, err = IssueCertificate(profile, &KeyCertPair{Key: other.Key, Cert: ca.Cert}, LeafRequest{CommonName: "x", ExpiryInDays: 1})
		require.Error(t, err)
		assert.True(t, fault.Is(err, fault.Crypto))
	})

	t.Run("missing CA", func(t *testing.T) {
		_, err := IssueCertificate(profile, nil, LeafRequest{CommonName: "x", ExpiryInDays: 1})
		require.Error(t, err)
	})

	t.Run("non positive expiry", func(t *testing.T) {
		_, err := IssueCertificate(profile, ca, LeafRequest{CommonName: "x"})
		require.Error(t, err)
		assert.True(t, fault.Is(err, fault.Config))
	})

	t.Run("empty common name", func(t *testing.T) {
		_, err := IssueCertificate(profile, ca, LeafRequest{ExpiryInDays: 1})
		require.Error(t, err)
		assert.True(t, fault.Is(err, fault.Crypto))
	})
}
