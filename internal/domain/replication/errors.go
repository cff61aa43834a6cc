package replication

import (
	"errors"
	"fmt"
)

// CodeEmptyDocument is the result code used when a derived document with no lines is refused
// before it reaches the host store.
const CodeEmptyDocument = -100

// ErrReplicationInFlight is returned when a trigger arrives while another attempt holds the guard.
// The trigger is dropped, not queued.
var ErrReplicationInFlight = errors.New("replication already in progress")

// ErrUnknownObjectKey is returned when the host accepted a create but did not report the key
// of the new document. The document exists; it must not be created again blindly.
var ErrUnknownObjectKey = errors.New("host created the document but did not report its key")

// ConnectError reports a failure to attach to the host. It is fatal for the process.
type ConnectError struct {
	Target string // descriptor with credentials removed
	Err    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("failed to connect to host %s: %v", e.Target, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// NotFoundError reports that the host has no document for the given kind and key,
// typically because it was removed between event emission and fetch.
type NotFoundError struct {
	Kind DocumentKind
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document %s of kind %s not found", e.Key, e.Kind)
}

// PersistenceError reports that the host store refused the create operation.
// Code and Description come from the host's last-error channel.
type PersistenceError struct {
	Code        int
	Description string
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("host rejected document (code %d): %s", e.Code, e.Description)
}

// ReportingError wraps a failure of the notification surface. It is logged and never propagated.
type ReportingError struct {
	Op  string
	Err error
}

func (e *ReportingError) Error() string {
	return fmt.Sprintf("reporting %s failed: %v", e.Op, e.Err)
}

func (e *ReportingError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is or wraps a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsPersistence reports whether err is or wraps a PersistenceError
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
