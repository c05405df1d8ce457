package auth

import "github.com/goliatone/go-pubsub-rest/transport"

var (
	_ transport.Authenticator = (*Auth)(nil)

	_ Callback = Key{}
	_ Callback = (*URLCallback)(nil)
	_ Callback = CallbackFunc(nil)

	_ Token = (*TokenRequest)(nil)
	_ Token = (*TokenDetails)(nil)
	_ Token = LiteralToken("")
)
