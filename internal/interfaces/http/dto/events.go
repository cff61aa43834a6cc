package dto

import "github.com/erp/replicator/internal/domain/replication"

// ItemEventRequest is an item-interaction event posted by the host UI bridge
type ItemEventRequest struct {
	FormUID      string `json:"form_uid" binding:"required,max=64"`
	FormType     string `json:"form_type" binding:"required,max=32"`
	ItemUID      string `json:"item_uid" binding:"max=64"`
	EventType    string `json:"event_type" binding:"required,startswith=et_,max=64"`
	BeforeAction bool   `json:"before_action"`
}

// ToDomain converts the request to a domain event
func (r ItemEventRequest) ToDomain() replication.ItemEvent {
	return replication.ItemEvent{
		FormUID:      r.FormUID,
		FormType:     r.FormType,
		ItemUID:      r.ItemUID,
		EventType:    replication.EventType(r.EventType),
		BeforeAction: r.BeforeAction,
	}
}

// FormDataEventRequest is a document-lifecycle event posted by the host UI bridge.
// object_key carries the host's key string, plain or XML.
type FormDataEventRequest struct {
	FormUID       string `json:"form_uid" binding:"required,max=64"`
	FormType      string `json:"form_type" binding:"required,max=32"`
	EventType     string `json:"event_type" binding:"required,startswith=et_,max=64"`
	BeforeAction  bool   `json:"before_action"`
	ActionSuccess bool   `json:"action_success"`
	ObjectKey     string `json:"object_key" binding:"max=4096"`
}

// ToDomain converts the request to a domain event
func (r FormDataEventRequest) ToDomain() replication.FormDataEvent {
	return replication.FormDataEvent{
		FormUID:       r.FormUID,
		FormType:      r.FormType,
		EventType:     replication.EventType(r.EventType),
		BeforeAction:  r.BeforeAction,
		ActionSuccess: r.ActionSuccess,
		ObjectKey:     r.ObjectKey,
	}
}

// EventResponse tells the host whether to continue its own handling
type EventResponse struct {
	BubbleEvent bool `json:"bubble_event"`
}

// HealthResponse reports the state of the add-on
type HealthResponse struct {
	Status      string `json:"status"`
	Time        string `json:"time"`
	Session     string `json:"session"`
	Replicating bool   `json:"replicating"`
	Listeners   int    `json:"listeners"`
}
