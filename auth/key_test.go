package auth

import (
	"regexp"
	"testing"
	"time"

	"github.com/goliatone/go-pubsub-rest/core"
)

func TestParseKey(t *testing.T) {
	key, err := ParseKey("ABC123.DEF456:XXXXXXXXXXXX")
	if err != nil {
		t.Fatalf("parse key: %v", err)
	}
	if key.Name != "ABC123.DEF456" {
		t.Fatalf("unexpected name %q", key.Name)
	}
	if key.Value != "XXXXXXXXXXXX" {
		t.Fatalf("unexpected value %q", key.Value)
	}
}

func TestParseKey_ValueMayContainSeparator(t *testing.T) {
	key, err := ParseKey("name:se:cr:et")
	if err != nil {
		t.Fatalf("parse key: %v", err)
	}
	if key.Value != "se:cr:et" {
		t.Fatalf("expected split on first separator only, got %q", key.Value)
	}
}

func TestParseKey_Invalid(t *testing.T) {
	for _, value := range []string{"", "not-a-valid-key", ":secret", "name:"} {
		_, err := ParseKey(value)
		if err == nil {
			t.Fatalf("expected error for %q", value)
		}
		if core.ErrorCode(err) != core.ErrCodeBadRequest {
			t.Fatalf("expected code %d, got %d", core.ErrCodeBadRequest, core.ErrorCode(err))
		}
	}
}

func TestSign_PopulatesDefaults(t *testing.T) {
	key := Key{Name: "app.keyid", Value: "secret"}

	req, err := key.Sign(TokenParams{})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if req.KeyName != "app.keyid" {
		t.Fatalf("unexpected key name %q", req.KeyName)
	}
	if req.Timestamp == 0 {
		t.Fatalf("expected populated timestamp")
	}
	if !regexp.MustCompile(`^[A-Za-z0-9]{16}$`).MatchString(req.Nonce) {
		t.Fatalf("expected 16 character alphanumeric nonce, got %q", req.Nonce)
	}
	if req.MAC == "" {
		t.Fatalf("expected populated mac")
	}
}

func TestSign_RejectsEmptyClientID(t *testing.T) {
	key := Key{Name: "app.keyid", Value: "secret"}
	empty := ""

	_, err := key.Sign(TokenParams{ClientID: &empty})
	if err == nil {
		t.Fatalf("expected error")
	}
	if core.ErrorCode(err) != core.ErrCodeInvalidClientID {
		t.Fatalf("expected code %d, got %d", core.ErrCodeInvalidClientID, core.ErrorCode(err))
	}
}

func signedFixture(t *testing.T, mutate func(*TokenParams)) *TokenRequest {
	t.Helper()
	key := Key{Name: "app.keyid", Value: "secret"}
	clientID := "client@example.com"
	params := TokenParams{
		Capability: `{"*":["*"]}`,
		ClientID:   &clientID,
		Nonce:      "0123456789abcdef",
		Timestamp:  time.UnixMilli(1635552598000),
	}
	if mutate != nil {
		mutate(&params)
	}
	req, err := key.Sign(params)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return req
}

func TestComputeMAC_Deterministic(t *testing.T) {
	first := signedFixture(t, nil)
	second := signedFixture(t, nil)
	if first.MAC != second.MAC {
		t.Fatalf("expected identical macs, got %q and %q", first.MAC, second.MAC)
	}
}

func TestComputeMAC_ChangesWithEachField(t *testing.T) {
	base := signedFixture(t, nil)

	mutations := map[string]func(*TokenParams){
		"capability": func(p *TokenParams) { p.Capability = `{"chan":["publish"]}` },
		"client_id": func(p *TokenParams) {
			clientID := "other@example.com"
			p.ClientID = &clientID
		},
		"nonce":     func(p *TokenParams) { p.Nonce = "fedcba9876543210" },
		"timestamp": func(p *TokenParams) { p.Timestamp = time.UnixMilli(1635552599000) },
		"ttl": func(p *TokenParams) {
			ttl := int64(3600)
			p.TTL = &ttl
		},
		"absent capability": func(p *TokenParams) { p.Capability = "" },
	}
	for field, mutate := range mutations {
		mutated := signedFixture(t, mutate)
		if mutated.MAC == base.MAC {
			t.Fatalf("expected mac to change when %s changes", field)
		}
	}
}

func TestGenerateNonce(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 32; i++ {
		nonce := generateNonce()
		if !regexp.MustCompile(`^[A-Za-z0-9]{16}$`).MatchString(nonce) {
			t.Fatalf("unexpected nonce %q", nonce)
		}
		if seen[nonce] {
			t.Fatalf("nonce repeated: %q", nonce)
		}
		seen[nonce] = true
	}
}
