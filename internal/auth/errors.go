package auth

import (
	"fmt"
	"strings"

	"github.com/desertthunder/topspot/internal/shared"
)

const codeAccessDenied = "access_denied"

var (
	ErrStateMismatch          = fmt.Errorf("%w: state mismatch", shared.ErrAuthFailed)
	ErrNoPendingAuthorization = fmt.Errorf("%w: no pending authorization", shared.ErrAuthFailed)
)

// ProtocolError is an OAuth error reported by the provider, either on the redirect or by the token endpoint.
//
// Err holds the underlying cause, usually an [*oauth2.RetrieveError].
type ProtocolError struct {
	Code        string
	Description string
	URI         string
	Err         error
}

func (e *ProtocolError) Error() string {
	var b strings.Builder
	b.WriteString("oauth error")
	if e.Code != "" {
		b.WriteString(": " + e.Code)
	}
	if e.Description != "" {
		b.WriteString(": " + e.Description)
	}
	if e.Code == "" && e.Description == "" && e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// Is reports true for [shared.ErrAuthFailed].
func (e *ProtocolError) Is(target error) bool {
	return target == shared.ErrAuthFailed
}
