package auth

import (
	"encoding/json"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/goliatone/go-pubsub-rest/core"
	"github.com/goliatone/go-pubsub-rest/transport"
)

// TokenParams are the caller-supplied parameters of a token request. All
// fields are optional; defaults are applied at signing time and never
// written back.
type TokenParams struct {
	// Capability is the JSON capability string the token should carry.
	Capability string

	// ClientID, when set, binds the token to a client identity. A present
	// but empty ClientID fails signing.
	ClientID *string

	// Nonce is an unguessable random string; generated when absent.
	Nonce string

	// Timestamp of the request; the current time when absent.
	Timestamp time.Time

	// TTL is the requested token lifetime in seconds.
	TTL *int64
}

// sign validates the params, applies defaults and produces a signed
// TokenRequest for the given key.
func (p TokenParams) sign(key Key) (*TokenRequest, error) {
	if p.ClientID != nil && *p.ClientID == "" {
		return nil, core.NewError(core.ErrCodeInvalidClientID, "client_id can't be an empty string")
	}

	timestamp := p.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	nonce := p.Nonce
	if nonce == "" {
		nonce = generateNonce()
	}
	clientID := ""
	if p.ClientID != nil {
		clientID = *p.ClientID
	}

	req := &TokenRequest{
		KeyName:    key.Name,
		Timestamp:  timestamp.UnixMilli(),
		Capability: p.Capability,
		ClientID:   clientID,
		Nonce:      nonce,
		TTL:        p.TTL,
	}
	req.MAC = computeMAC(key, req)

	return req, nil
}

// TokenRequest is a signed request for a token, exchanged with the
// service's requestToken endpoint. Timestamp is milliseconds since epoch.
type TokenRequest struct {
	KeyName    string `json:"keyName" msgpack:"keyName"`
	Timestamp  int64  `json:"timestamp" msgpack:"timestamp"`
	Capability string `json:"capability,omitempty" msgpack:"capability,omitempty"`
	ClientID   string `json:"clientId,omitempty" msgpack:"clientId,omitempty"`
	MAC        string `json:"mac,omitempty" msgpack:"mac,omitempty"`
	Nonce      string `json:"nonce,omitempty" msgpack:"nonce,omitempty"`
	TTL        *int64 `json:"ttl,omitempty" msgpack:"ttl,omitempty"`
}

// TokenDetails is the token and metadata issued by the service. Expires
// and Issued are milliseconds since epoch, zero when absent.
type TokenDetails struct {
	Token      string `json:"token" msgpack:"token"`
	Expires    int64  `json:"expires,omitempty" msgpack:"expires,omitempty"`
	Issued     int64  `json:"issued,omitempty" msgpack:"issued,omitempty"`
	Capability string `json:"capability,omitempty" msgpack:"capability,omitempty"`
	ClientID   string `json:"clientId,omitempty" msgpack:"clientId,omitempty"`
}

// ExpiresAt returns the expiry instant, if the service provided one.
func (d *TokenDetails) ExpiresAt() (time.Time, bool) {
	if d.Expires == 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(d.Expires), true
}

// IssuedAt returns the issue instant, if the service provided one.
func (d *TokenDetails) IssuedAt() (time.Time, bool) {
	if d.Issued == 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(d.Issued), true
}

// Token is the value produced by a Callback: a signed TokenRequest still
// to be exchanged, issued TokenDetails, or a literal token string.
type Token interface {
	isToken()
}

func (*TokenRequest) isToken() {}

func (*TokenDetails) isToken() {}

// LiteralToken is a bare token string.
type LiteralToken string

func (LiteralToken) isToken() {}

// DecodeToken decodes a token payload without a discriminant field, trying
// each shape in order of specificity: TokenRequest, then TokenDetails,
// then a literal token string. A payload matching several shapes takes the
// earliest interpretation.
func DecodeToken(data []byte, format transport.Format) (Token, error) {
	unmarshal := func(value any) error {
		if format == transport.FormatJSON {
			return json.Unmarshal(data, value)
		}
		return msgpack.Unmarshal(data, value)
	}

	var req TokenRequest
	if err := unmarshal(&req); err == nil && req.KeyName != "" && req.Nonce != "" {
		return &req, nil
	}
	var details TokenDetails
	if err := unmarshal(&details); err == nil && details.Token != "" {
		return &details, nil
	}
	var literal string
	if err := unmarshal(&literal); err == nil && literal != "" {
		return LiteralToken(literal), nil
	}
	return nil, core.NewError(core.ErrCodeInvalidBody, "auth: payload does not decode to a token")
}
