package replication

import "context"

// Connector attaches to a running host. Connect returns a *ConnectError on failure.
type Connector interface {
	Connect(ctx context.Context, descriptor string) (Session, error)
}

// Session is a process-wide host session, acquired once at startup and closed once at shutdown
type Session interface {
	DataAPI() DataAPI
	Close() error
}

// DataAPI is the host's business-object persistence API.
// It mirrors the host's result-code style: Add reports a code and the detail is read back
// through LastError.
type DataAPI interface {
	// GetBusinessObject acquires a handle on an object of the given kind.
	// The caller owns the handle and must Close it.
	GetBusinessObject(ctx context.Context, kind DocumentKind) (BusinessObject, error)
	// LastError returns the code and description of the most recent failed operation
	LastError() (code int, description string)
	// NewObjectKey returns the key assigned by the most recent successful Add
	NewObjectKey() string
}

// BusinessObject is a handle on one host document
type BusinessObject interface {
	// GetByKey loads the document with the given key. It returns false when no such document exists.
	GetByKey(ctx context.Context, key string) (bool, error)
	// Document returns the loaded document
	Document() SourceDocument
	// SetDocument stages header and lines for Add
	SetDocument(doc *DerivedDocument)
	// Add submits the staged document. Zero means success.
	Add(ctx context.Context) int
	Close() error
}

// MessageTime is how long a status-bar message stays visible
type MessageTime string

const (
	MessageTimeShort  MessageTime = "short"
	MessageTimeMedium MessageTime = "medium"
	MessageTimeLong   MessageTime = "long"
)

// Severity is the status-bar message type
type Severity string

const (
	SeverityNone    Severity = "none"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Icon is the icon shown on a modal message box
type Icon string

const (
	IconInfo    Icon = "info"
	IconWarning Icon = "warning"
	IconError   Icon = "error"
)

// Notifier is the host's user-notification surface
type Notifier interface {
	SetStatusText(ctx context.Context, text string, duration MessageTime, severity Severity) error
	ShowModal(ctx context.Context, text string, icon Icon, buttons ...string) error
}
