package jwt

const (
	headerType = "JWT"
	// Algorithm is secp256k1 over keccak256 with a recoverable signature.
	Algorithm = "BIBLION"
)

type Header struct {
	Type      string `json:"typ"`
	Algorithm string `json:"alg"`
	KeyID     string `json:"kid,omitempty"`
}

// Claims follows RFC 7519 names. Times are unix seconds as strings.
type Claims struct {
	Issuer         string `json:"iss,omitempty"`
	Subject        string `json:"sub,omitempty"`
	Audience       string `json:"aud,omitempty"`
	ExpirationTime string `json:"exp,omitempty"`
	NotBefore      string `json:"nbf,omitempty"`
	IssuedAt       string `json:"iat,omitempty"`
	JWTID          string `json:"jti,omitempty"`
}
