package biblion

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/cosmos/cosmos-sdk/types/bech32"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
)

const (
	// AccountPrefix is the bech32 human readable part of account addresses.
	AccountPrefix = "bib"
	// NodePrefix is used for the address of the node key.
	NodePrefix = "bibn"

	addressLength = 20
)

// GetHash returns the keccak256 digest of data.
func GetHash(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

func GetHashHex(data []byte) string {
	return hex.EncodeToString(GetHash(data))
}

func loadPrivateKey(privatekey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privatekey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

func PubkeyToAddr(pub *ecdsa.PublicKey, hrp string) (string, error) {
	addr := crypto.PubkeyToAddress(*pub)
	return bech32.ConvertAndEncode(hrp, addr.Bytes())
}

func PrivKeyToAddr(privatekey string, hrp string) (string, error) {
	key, err := loadPrivateKey(privatekey)
	if err != nil {
		return "", err
	}
	return PubkeyToAddr(&key.PublicKey, hrp)
}

// SignBytes signs keccak256(data) and returns the 65 byte [R || S || V] signature.
func SignBytes(data []byte, privatekey string) ([]byte, error) {
	key, err := loadPrivateKey(privatekey)
	if err != nil {
		return nil, err
	}
	return crypto.Sign(GetHash(data), key)
}

func RecoverAddress(data, signature []byte, hrp string) (string, error) {
	if len(signature) != crypto.SignatureLength {
		return "", fmt.Errorf("invalid signature length: %d", len(signature))
	}
	pub, err := crypto.SigToPub(GetHash(data), signature)
	if err != nil {
		return "", fmt.Errorf("failed to recover public key: %w", err)
	}
	return PubkeyToAddr(pub, hrp)
}

// VerifySignature checks that signature over data was produced by the key of address.
func VerifySignature(data, signature []byte, address string) error {
	expected, err := NormalizeAddress(address)
	if err != nil {
		return err
	}

	recovered, err := RecoverAddress(data, signature, AccountPrefix)
	if err != nil {
		return err
	}

	if recovered != expected {
		return fmt.Errorf("signature does not match address %s", address)
	}
	return nil
}

// NormalizeAddress accepts a bech32 address (account or node prefix) or a 0x
// prefixed hex address and returns the account form. One key has one identity,
// whichever prefix it was written with.
func NormalizeAddress(address string) (string, error) {
	if address == "" {
		return "", fmt.Errorf("empty address")
	}

	if strings.HasPrefix(address, "0x") || strings.HasPrefix(address, "0X") {
		raw, err := hex.DecodeString(address[2:])
		if err != nil || len(raw) != addressLength {
			return "", fmt.Errorf("invalid hex address %q", address)
		}
		return bech32.ConvertAndEncode(AccountPrefix, raw)
	}

	hrp, raw, err := bech32.DecodeAndConvert(strings.ToLower(address))
	if err != nil {
		return "", fmt.Errorf("invalid address %q: %w", address, err)
	}
	if len(raw) != addressLength {
		return "", fmt.Errorf("invalid address length %d", len(raw))
	}
	if hrp != AccountPrefix && hrp != NodePrefix {
		return "", fmt.Errorf("unsupported address prefix %q", hrp)
	}
	return bech32.ConvertAndEncode(AccountPrefix, raw)
}

func IsAddress(address string) bool {
	_, err := NormalizeAddress(address)
	return err == nil
}

// SignDocument signs the document string as is; verifiers hash the same bytes.
func SignDocument(document string, privatekey string) (SignedDocument, error) {
	signature, err := SignBytes([]byte(document), privatekey)
	if err != nil {
		return SignedDocument{}, err
	}
	return SignedDocument{
		Document: document,
		Proof: Proof{
			Type:      ProofTypeSecp256k1,
			Signature: hex.EncodeToString(signature),
		},
	}, nil
}
