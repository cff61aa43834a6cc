package replication

// EventType is the host's event kind as reported by its UI event bus
type EventType string

// Host event types the replicator can receive
const (
	EventItemPressed    EventType = "et_ITEM_PRESSED"
	EventClick          EventType = "et_CLICK"
	EventFormLoad       EventType = "et_FORM_LOAD"
	EventFormDataAdd    EventType = "et_FORM_DATA_ADD"
	EventFormDataUpdate EventType = "et_FORM_DATA_UPDATE"
	EventFormDataLoad   EventType = "et_FORM_DATA_LOAD"
	EventFormDataDelete EventType = "et_FORM_DATA_DELETE"
)

// ItemEvent is an item-interaction event (button press, click) on a host form
type ItemEvent struct {
	FormUID      string
	FormType     string
	ItemUID      string
	EventType    EventType
	BeforeAction bool
}

// FormDataEvent is a document-lifecycle event raised by a host form
type FormDataEvent struct {
	FormUID       string
	FormType      string
	EventType     EventType
	BeforeAction  bool
	ActionSuccess bool
	ObjectKey     string // plain key or the host's XML key envelope
}

// HandlerResult is returned to the host for every delivered event.
// BubbleEvent tells the host to continue its own default handling.
type HandlerResult struct {
	BubbleEvent bool
}

// Propagate is the only result the replicator ever returns: it never suppresses host handling.
var Propagate = HandlerResult{BubbleEvent: true}
