// Package scoreerr defines the scoring error taxonomy shared by every stage.
package scoreerr

import (
	"errors"
	"fmt"
	"strings"
)

// #region kind
// Kind classifies a scoring failure.
type Kind string

const (
	KindStructuralInvalid   Kind = "structural_invalid"
	KindCatalogMismatch     Kind = "catalog_mismatch"
	KindPersistenceConflict Kind = "persistence_conflict"
	KindTransientDependency Kind = "transient_dependency"
)

// Sentinels for errors.Is matching on kind alone.
var (
	ErrStructuralInvalid   = &Error{Kind: KindStructuralInvalid}
	ErrCatalogMismatch     = &Error{Kind: KindCatalogMismatch}
	ErrPersistenceConflict = &Error{Kind: KindPersistenceConflict}
	ErrTransientDependency = &Error{Kind: KindTransientDependency}
)

// #endregion kind

// #region error
// Error is a typed scoring failure carrying operator-actionable details.
type Error struct {
	Kind      Kind
	SessionID string
	Details   []string
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.SessionID != "" {
		fmt.Fprintf(&b, " (session %s)", e.SessionID)
	}
	if len(e.Details) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Details, "; "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// WithSession returns a copy of e bound to a session id.
func (e *Error) WithSession(id string) *Error {
	cp := *e
	cp.SessionID = id
	return &cp
}

// #endregion error

// #region constructors
// StructuralInvalid reports validator hard errors.
func StructuralInvalid(details ...string) *Error {
	return &Error{Kind: KindStructuralInvalid, Details: details}
}

// CatalogMismatch reports a response that references an unknown item.
func CatalogMismatch(itemID string, err error) *Error {
	return &Error{Kind: KindCatalogMismatch, Details: []string{"unknown item " + itemID}, Err: err}
}

// UnknownCatalog reports a session pinned to a catalog version that is not
// registered.
func UnknownCatalog(version string, err error) *Error {
	return &Error{Kind: KindCatalogMismatch, Details: []string{"unknown catalog version " + version}, Err: err}
}

// PersistenceConflict reports a lost compare-and-swap on the stored hash.
func PersistenceConflict(sessionID, detail string) *Error {
	return &Error{Kind: KindPersistenceConflict, SessionID: sessionID, Details: []string{detail}}
}

// TransientDependency reports a best-effort downstream step that failed after
// the profile was written.
func TransientDependency(sessionID, step string, err error) *Error {
	return &Error{Kind: KindTransientDependency, SessionID: sessionID, Details: []string{step}, Err: err}
}

// KindOf extracts the Kind of err, or "" if err is not a scoring error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// #endregion constructors
