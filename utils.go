package biblion

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	URIScheme = "bib"

	ActivityKey    = "activity"
	tokenKeyPrefix = "tokens/"
	eventKeyPrefix = "events/"
)

func ParseURI(escaped string) (string, string, error) {
	uriString, err := url.QueryUnescape(escaped)
	if err != nil {
		return "", "", fmt.Errorf("invalid uri encoding")
	}
	uri, err := url.Parse(uriString)
	if err != nil {
		return "", "", fmt.Errorf("invalid uri")
	}

	if uri.Scheme != URIScheme {
		return "", "", fmt.Errorf("unsupported uri scheme")
	}

	host := uri.Host
	key := strings.TrimPrefix(uri.Path, "/")

	return host, key, nil
}

func ComposeURI(host, key string) string {
	u := &url.URL{
		Scheme: URIScheme,
		Host:   host,
		Path:   "/" + strings.TrimPrefix(key, "/"),
	}
	return u.String()
}

func TokenKey(id uint64) string {
	return tokenKeyPrefix + strconv.FormatUint(id, 10)
}

func EventKey(id string) string {
	return eventKeyPrefix + id
}

// ParseTokenKey reports the token id of a "tokens/<id>" key.
func ParseTokenKey(key string) (uint64, bool) {
	rest, ok := strings.CutPrefix(key, tokenKeyPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func ParseEventKey(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, eventKeyPrefix)
	if !ok || rest == "" {
		return "", false
	}
	return rest, true
}
