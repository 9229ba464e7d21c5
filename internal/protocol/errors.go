package protocol

// CredentialInvalidMessage is the sentinel carried by an error frame when the
// server rejects the access token mid-session. Matches the auth service's
// refresh failure detail.
const CredentialInvalidMessage = "Invalid token"

// Close codes that signal the access token was rejected at the transport
// layer. 1008 is the standard policy-violation code; 4401 is the server's
// application-defined unauthorized code; 403 shows up when the handshake
// itself is refused.
const (
	ClosePolicyViolation = 1008
	CloseForbidden       = 403
	CloseUnauthorized    = 4401
)

var credentialRejectedCodes = map[int]struct{}{
	ClosePolicyViolation: {},
	CloseForbidden:       {},
	CloseUnauthorized:    {},
}

// IsCredentialRejectedCode reports whether a close code means the token is no
// longer valid and a refresh should be attempted instead of surfacing the
// close.
func IsCredentialRejectedCode(code int) bool {
	_, ok := credentialRejectedCodes[code]
	return ok
}

// IsCredentialInvalidError reports whether an error frame's message is the
// credential-invalid sentinel.
func IsCredentialInvalidError(message string) bool {
	return message == CredentialInvalidMessage
}
