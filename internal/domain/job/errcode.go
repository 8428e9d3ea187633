package job

import "strings"

// ErrorCode is the user-facing failure category stored alongside the
// error message.
type ErrorCode string

const (
	ErrUnavailable      ErrorCode = "unavailable"
	ErrAgeRestricted    ErrorCode = "age_restricted"
	ErrLiveUnsupported  ErrorCode = "live_unsupported"
	ErrNetworkOrTimeout ErrorCode = "network_or_timeout"
	ErrEncodeFailure    ErrorCode = "encode_failure"
	ErrGeneric          ErrorCode = "generic"
)

// ClassifyFetch maps a fetch collaborator failure onto the user-facing
// taxonomy by matching known substrings. Unrecognized errors pass their
// message through verbatim as Generic.
func ClassifyFetch(err error) (ErrorCode, string) {
	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "private", "unavailable", "not available", "removed", "region"):
		return ErrUnavailable, "source is unavailable (private, deleted, or region-restricted)"
	case containsAny(msg, "age", "login required", "sign in"):
		return ErrAgeRestricted, "source requires sign-in or age verification"
	case containsAny(msg, "live stream", "is live", "premiere"):
		return ErrLiveUnsupported, "live or in-progress streams are not supported"
	case containsAny(msg, "timeout", "deadline exceeded", "connection re", "no such host", "temporar"):
		return ErrNetworkOrTimeout, "network failure while retrieving the source, try again later"
	default:
		return ErrGeneric, err.Error()
	}
}

// ClassifyEncode wraps an encode collaborator failure. The original
// message is kept so the caller can see what the encoder complained about.
func ClassifyEncode(err error) (ErrorCode, string) {
	return ErrEncodeFailure, err.Error()
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
