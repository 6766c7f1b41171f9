package jwt

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totegamma/biblion"
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func issue(t *testing.T, exp time.Time) (string, string) {
	t.Helper()
	addr, err := biblion.PrivKeyToAddr(testKey, biblion.AccountPrefix)
	require.NoError(t, err)

	token, err := Create(Claims{
		Issuer:         addr,
		Subject:        "biblion",
		Audience:       "books.example.com",
		ExpirationTime: strconv.FormatInt(exp.Unix(), 10),
	}, testKey)
	require.NoError(t, err)
	return token, addr
}

func TestCreateAndValidate(t *testing.T) {
	token, addr := issue(t, time.Now().Add(time.Hour))

	header, claims, err := Validate(token)
	require.NoError(t, err)
	assert.Equal(t, Algorithm, header.Algorithm)
	assert.Equal(t, addr, claims.Issuer)
	assert.Equal(t, "books.example.com", claims.Audience)
}

func TestValidateExpired(t *testing.T) {
	token, _ := issue(t, time.Now().Add(-time.Minute))

	_, _, err := Validate(token)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestValidateNotBefore(t *testing.T) {
	addr, err := biblion.PrivKeyToAddr(testKey, biblion.AccountPrefix)
	require.NoError(t, err)

	token, err := Create(Claims{
		Issuer:    addr,
		NotBefore: strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10),
	}, testKey)
	require.NoError(t, err)

	_, _, err = Validate(token)
	assert.ErrorIs(t, err, ErrNotYetValid)
}

func TestValidateRejectsForeignAlgorithm(t *testing.T) {
	token, _ := issue(t, time.Now().Add(time.Hour))
	parts := strings.Split(token, ".")

	header, err := encodeSegment(Header{Type: "JWT", Algorithm: "HS256"})
	require.NoError(t, err)

	_, _, err = Validate(header + "." + parts[1] + "." + parts[2])
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestValidateTampered(t *testing.T) {
	token, _ := issue(t, time.Now().Add(time.Hour))

	otherKey := "8da4ef21b864d2cc526dbdb2a120bd2874c36c9d0a1fb7f8c63d7f7a8b41de8f"
	otherAddr, err := biblion.PrivKeyToAddr(otherKey, biblion.AccountPrefix)
	require.NoError(t, err)

	// claims naming another issuer, carrying the signature of the original token
	other, err := Create(Claims{
		Issuer:   otherAddr,
		Subject:  "biblion",
		Audience: "books.example.com",
	}, otherKey)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	otherParts := strings.Split(other, ".")
	forged := otherParts[0] + "." + otherParts[1] + "." + parts[2]

	_, _, err = Validate(other)
	require.NoError(t, err)

	_, _, err = Validate(forged)
	assert.Error(t, err)

	_, _, err = Validate("not-a-jwt")
	assert.ErrorIs(t, err, ErrMalformed)

	_, _, err = Validate("!!." + parts[1] + "." + parts[2])
	assert.ErrorIs(t, err, ErrMalformed)
}
