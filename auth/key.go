package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/goliatone/go-pubsub-rest/core"
)

// Key is an API key used to authenticate with the REST API over HTTP
// Basic auth, or to sign token requests. Immutable once parsed.
type Key struct {
	Name  string
	Value string
}

// ParseKey parses an API key from a string of the form "<name>:<secret>".
// The first colon splits name from secret; the secret may itself contain
// colons. Neither part may be empty.
func ParseKey(s string) (Key, error) {
	name, value, found := strings.Cut(s, ":")
	if !found || name == "" || value == "" {
		return Key{}, core.NewError(core.ErrCodeBadRequest, "Invalid key")
	}
	return Key{Name: name, Value: value}, nil
}

// Sign produces a signed TokenRequest for the given params using this key.
func (k Key) Sign(params TokenParams) (*TokenRequest, error) {
	return params.sign(k)
}

// computeMAC computes the HMAC-SHA256 of the canonical representation of a
// token request, keyed by the key secret. The field order and the
// empty-string encoding of absent optionals must match the service's
// token request contract exactly; any deviation yields a request the
// service rejects as unsigned.
func computeMAC(key Key, req *TokenRequest) string {
	mac := hmac.New(sha256.New, []byte(key.Value))

	writeField := func(value string) {
		mac.Write([]byte(value))
		mac.Write([]byte("\n"))
	}

	writeField(req.KeyName)
	ttl := ""
	if req.TTL != nil {
		ttl = strconv.FormatInt(*req.TTL, 10)
	}
	writeField(ttl)
	writeField(req.Capability)
	writeField(req.ClientID)
	writeField(strconv.FormatInt(req.Timestamp, 10))
	writeField(req.Nonce)

	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

const nonceLength = 16

const nonceAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generateNonce returns a random 16 character alphanumeric string.
func generateNonce() string {
	buf := make([]byte, nonceLength)
	if _, err := rand.Read(buf); err != nil {
		panic("auth: reading random bytes: " + err.Error())
	}
	for i, b := range buf {
		buf[i] = nonceAlphabet[int(b)%len(nonceAlphabet)]
	}
	return string(buf)
}
