package jwt

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/totegamma/biblion"
)

var (
	ErrMalformed   = errors.New("malformed jwt")
	ErrUnsupported = errors.New("unsupported jwt")
	ErrExpired     = errors.New("jwt is expired")
	ErrNotYetValid = errors.New("jwt is not valid yet")
)

var segment = base64.RawURLEncoding

func encodeSegment(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return segment.EncodeToString(raw), nil
}

func decodeSegment(s string, v any) error {
	raw, err := segment.DecodeString(s)
	if err != nil {
		return errors.Wrap(ErrMalformed, err.Error())
	}
	err = json.Unmarshal(raw, v)
	if err != nil {
		return errors.Wrap(ErrMalformed, err.Error())
	}
	return nil
}

// Create signs claims with privatekey. The issuer should be the address of that key.
func Create(claims Claims, privatekey string) (string, error) {
	header, err := encodeSegment(Header{Type: headerType, Algorithm: Algorithm})
	if err != nil {
		return "", err
	}
	payload, err := encodeSegment(claims)
	if err != nil {
		return "", err
	}

	signingInput := header + "." + payload
	signature, err := biblion.SignBytes([]byte(signingInput), privatekey)
	if err != nil {
		return "", errors.Wrap(err, "sign jwt")
	}

	return signingInput + "." + segment.EncodeToString(signature), nil
}

// Validate verifies the signature against the key id, or the issuer when no
// key id is set, and then the time window of the claims.
func Validate(token string) (*Header, *Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, nil, ErrMalformed
	}

	var header Header
	if err := decodeSegment(parts[0], &header); err != nil {
		return nil, nil, err
	}
	if header.Type != headerType || header.Algorithm != Algorithm {
		return nil, nil, errors.Wrapf(ErrUnsupported, "%s/%s", header.Type, header.Algorithm)
	}

	var claims Claims
	if err := decodeSegment(parts[1], &claims); err != nil {
		return nil, nil, err
	}

	signature, err := segment.DecodeString(parts[2])
	if err != nil {
		return nil, nil, errors.Wrap(ErrMalformed, "signature")
	}

	signer := header.KeyID
	if signer == "" {
		signer = claims.Issuer
	}
	err = biblion.VerifySignature([]byte(parts[0]+"."+parts[1]), signature, signer)
	if err != nil {
		return nil, nil, err
	}

	err = claims.checkTime(time.Now())
	if err != nil {
		return nil, nil, err
	}

	return &header, &claims, nil
}

func (c Claims) checkTime(now time.Time) error {
	if c.ExpirationTime != "" {
		exp, err := strconv.ParseInt(c.ExpirationTime, 10, 64)
		if err != nil {
			return errors.Wrap(ErrMalformed, "exp")
		}
		if now.Unix() > exp {
			return ErrExpired
		}
	}
	if c.NotBefore != "" {
		nbf, err := strconv.ParseInt(c.NotBefore, 10, 64)
		if err != nil {
			return errors.Wrap(ErrMalformed, "nbf")
		}
		if now.Unix() < nbf {
			return ErrNotYetValid
		}
	}
	return nil
}
