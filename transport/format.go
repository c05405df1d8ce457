package transport

// Format selects the wire encoding negotiated with the REST service.
type Format string

const (
	FormatJSON        Format = "json"
	FormatMessagePack Format = "msgpack"
)

const (
	contentTypeJSON        = "application/json"
	contentTypeMessagePack = "application/x-msgpack"
)

func (f Format) valid() bool {
	return f == FormatJSON || f == FormatMessagePack
}

// ContentType returns the MIME type announced for bodies in this format.
func (f Format) ContentType() string {
	if f == FormatJSON {
		return contentTypeJSON
	}
	return contentTypeMessagePack
}

// ParseFormat maps a configuration value onto a Format, defaulting to
// MessagePack which is the service's compact encoding.
func ParseFormat(value string) Format {
	if value == string(FormatJSON) {
		return FormatJSON
	}
	return FormatMessagePack
}
