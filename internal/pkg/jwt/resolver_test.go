package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Unix(1_700_000_000, 0)

func hsToken(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte("not-checked-by-the-gateway"))
	require.NoError(t, err)
	return s
}

func tokenExpiringAt(t *testing.T, exp time.Time) string {
	return hsToken(t, &Claims{
		Roles: []string{"ROLE_CLIENT"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "jdoe",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
}

func TestResolverExpiryBoundary(t *testing.T) {
	r := NewResolver(WithClock(func() time.Time { return fixedNow }))

	assert.True(t, r.Valid(tokenExpiringAt(t, fixedNow.Add(time.Second))))
	assert.False(t, r.Valid(tokenExpiringAt(t, fixedNow)), "exp == now is expired")
	assert.False(t, r.Valid(tokenExpiringAt(t, fixedNow.Add(-time.Second))))
}

func TestResolverFractionalNow(t *testing.T) {
	// exp is whole seconds; half a second past it the token is gone.
	r := NewResolver(WithClock(func() time.Time { return fixedNow.Add(500 * time.Millisecond) }))
	assert.False(t, r.Valid(tokenExpiringAt(t, fixedNow)))
}

func TestResolverRejectsMissingExpiry(t *testing.T) {
	r := NewResolver(WithClock(func() time.Time { return fixedNow }))
	tok := hsToken(t, &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "jdoe"}})

	_, err := r.Resolve(tok)
	assert.ErrorIs(t, err, ErrMissingExpiry)
}

func TestResolverRejectsGarbage(t *testing.T) {
	r := NewResolver()
	for _, tok := range []string{"", "abc", "a.b.c", "not a token at all"} {
		assert.False(t, r.Valid(tok), tok)
	}

	_, err := r.Decode("abc")
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestResolverDecodeReadsRoles(t *testing.T) {
	r := NewResolver()
	claims, err := r.Decode(tokenExpiringAt(t, fixedNow))
	require.NoError(t, err)
	assert.Equal(t, []string{"ROLE_CLIENT"}, claims.RoleNames())
	assert.Equal(t, "jdoe", claims.Subject)
	assert.Equal(t, fixedNow.Unix(), r.ExpiresAt(tokenExpiringAt(t, fixedNow)).Unix())
}

func TestClaimsRoleNames(t *testing.T) {
	c := &Claims{Roles: []string{"ROLE_TRAINER", "", "ROLE_CLIENT", "ROLE_TRAINER"}, Role: "ROLE_CLIENT"}
	assert.Equal(t, []string{"ROLE_TRAINER", "ROLE_CLIENT"}, c.RoleNames())

	c = &Claims{Role: "ROLE_ADMIN"}
	assert.Equal(t, []string{"ROLE_ADMIN"}, c.RoleNames())

	_, ok := (&Claims{}).Expiry()
	assert.False(t, ok)
}

func TestParsePublicKeyFromCertificate(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := &x509.Certificate{SerialNumber: big.NewInt(1), NotBefore: fixedNow, NotAfter: fixedNow.Add(time.Hour)}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	pub, err := ParseRSAPublicKeyPEM(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(pub))

	_, err = ParseRSAPublicKeyPEM(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte("x")}))
	assert.ErrorIs(t, err, ErrUnsupportedKey)

	_, err = ParseRSAPublicKeyPEM([]byte("not pem"))
	assert.ErrorIs(t, err, ErrUnsupportedKey)
}

func TestResolverWithPublicKey(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(fixedNow.Add(time.Hour))}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	forged, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(other)
	require.NoError(t, err)

	clock := WithClock(func() time.Time { return fixedNow })
	r := NewResolver(WithPublicKey(&key.PublicKey), clock)
	assert.True(t, r.Valid(signed))
	assert.False(t, r.Valid(forged))
	assert.False(t, r.Valid(hsToken(t, claims)), "HMAC tokens are refused once a key is configured")
}

func TestLoadResolverFromPEM(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "jwt_public.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), 0o600))

	r, err := LoadResolver(Config{PubPath: path})
	require.NoError(t, err)
	assert.NotNil(t, r.pub)

	_, err = LoadResolver(Config{PubPath: filepath.Join(t.TempDir(), "missing.pem")})
	assert.Error(t, err)

	r, err = LoadResolver(Config{})
	require.NoError(t, err)
	assert.Nil(t, r.pub)
}
