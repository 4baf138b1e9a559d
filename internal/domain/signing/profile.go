package signing

import (
	"errors"
	"time"
)

// ErrMissingTimestamp is returned when the profile requires a caller-supplied
// timestamp and the inbound request did not carry one. Callers map this to a
// 400 response before any secret fetch or upstream call happens.
var ErrMissingTimestamp = errors.New("missing required timestamp header")

// HeaderScheme selects which header names carry the signature and timestamp
// on the outbound request.
type HeaderScheme string

const (
	// HeaderSchemeCustom emits the x-hmac-signature / x-hmac-timestamp pair.
	HeaderSchemeCustom HeaderScheme = "custom"
	// HeaderSchemeLegacy emits the capitalized X-Signature / X-Timestamp pair
	// used by older backend deployments.
	HeaderSchemeLegacy HeaderScheme = "legacy"
)

// TimestampSource selects where the signed timestamp comes from.
type TimestampSource string

const (
	// TimestampServer stamps the current time fresh per request, ignoring
	// any timestamp the caller supplied.
	TimestampServer TimestampSource = "server"
	// TimestampCaller requires the inbound request to carry a timestamp
	// header; its absence fails the request before signing.
	TimestampCaller TimestampSource = "caller"
)

// Profile bundles the two historical signing variants into one configurable
// choice: which header pair to emit and where the timestamp comes from.
type Profile struct {
	Scheme     HeaderScheme
	Timestamps TimestampSource
}

// DefaultProfile is the custom-header, server-stamped profile.
var DefaultProfile = Profile{Scheme: HeaderSchemeCustom, Timestamps: TimestampServer}

// SignatureHeader returns the header name carrying the signature.
func (p Profile) SignatureHeader() string {
	if p.Scheme == HeaderSchemeLegacy {
		return "X-Signature"
	}
	return "x-hmac-signature"
}

// TimestampHeader returns the header name carrying the timestamp.
func (p Profile) TimestampHeader() string {
	if p.Scheme == HeaderSchemeLegacy {
		return "X-Timestamp"
	}
	return "x-hmac-timestamp"
}

// ResolveTimestamp determines the timestamp to sign. callerValue is the
// inbound timestamp header value (empty when absent); now is the current
// time. Server-sourced profiles always stamp now in RFC 3339 UTC. Caller-
// sourced profiles return ErrMissingTimestamp when callerValue is empty.
func (p Profile) ResolveTimestamp(callerValue string, now time.Time) (string, error) {
	if p.Timestamps == TimestampCaller {
		if callerValue == "" {
			return "", ErrMissingTimestamp
		}
		return callerValue, nil
	}
	return now.UTC().Format(time.RFC3339), nil
}
