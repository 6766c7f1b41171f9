package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totegamma/biblion"
	"github.com/totegamma/biblion/internal/domain"
	"github.com/totegamma/biblion/jwt"
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestAuthJwt(t *testing.T) {
	addr, err := biblion.PrivKeyToAddr(testKey, biblion.AccountPrefix)
	require.NoError(t, err)

	svc := NewAuthService(domain.Config{FQDN: "books.example.com"})
	exp := strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10)

	token, err := jwt.Create(jwt.Claims{
		Issuer:         addr,
		Subject:        "biblion",
		Audience:       "books.example.com",
		ExpirationTime: exp,
	}, testKey)
	require.NoError(t, err)

	result, err := svc.AuthJwt(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, addr, result.Address)

	other, err := jwt.Create(jwt.Claims{
		Issuer:         addr,
		Subject:        "biblion",
		Audience:       "elsewhere.example.com",
		ExpirationTime: exp,
	}, testKey)
	require.NoError(t, err)

	_, err = svc.AuthJwt(context.Background(), other)
	assert.ErrorContains(t, err, "audience")
}

func TestChannelOf(t *testing.T) {
	channel, ok := ChannelOf("activity")
	assert.True(t, ok)
	assert.Equal(t, domain.EventChannel, channel)

	channel, ok = ChannelOf(biblion.TokenKey(7))
	assert.True(t, ok)
	assert.Equal(t, domain.TokenChannelPrefix+"7", channel)

	_, ok = ChannelOf("biblion:events")
	assert.False(t, ok)
}
