package types

import "time"

// Priority of an incoming call
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// CallType categorises an incoming call
type CallType string

const (
	CallTypeGeneral     CallType = "general"
	CallTypeEmergency   CallType = "emergency"
	CallTypeAppointment CallType = "appointment"
	CallTypeBilling     CallType = "billing"
	CallTypeClinical    CallType = "clinical"
)

// Priorities lists every call priority
var Priorities = []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent}

// Valid reports whether p is a known priority
func (p Priority) Valid() bool {
	for _, known := range Priorities {
		if p == known {
			return true
		}
	}
	return false
}

// CallTypes lists every call type
var CallTypes = []CallType{CallTypeGeneral, CallTypeEmergency, CallTypeAppointment, CallTypeBilling, CallTypeClinical}

// Valid reports whether t is a known call type
func (t CallType) Valid() bool {
	for _, known := range CallTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Direction of a call session
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// OutboundQueue is the queue label given to dialed calls
const OutboundQueue = "Outbound Call"

// IncomingCall is a simulated call presented to the agent
type IncomingCall struct {
	ID              string   `json:"id"`
	CallerNumber    string   `json:"callerNumber"`
	CallerName      string   `json:"callerName,omitempty"`
	Queue           string   `json:"queue"`
	WaitTimeSeconds int      `json:"waitTimeSeconds"`
	Priority        Priority `json:"priority"`
	CallType        CallType `json:"callType"`
	PatientID       string   `json:"patientId,omitempty"`
}

// Caller returns the caller identity carried into a call session
func (c IncomingCall) Caller() Caller {
	return Caller{Number: c.CallerNumber, Name: c.CallerName, PatientID: c.PatientID}
}

// CallTemplate is one entry of the catalog the generator draws calls from
type CallTemplate struct {
	CallerNumber string   `json:"callerNumber"`
	CallerName   string   `json:"callerName,omitempty"`
	Queue        string   `json:"queue"`
	Priority     Priority `json:"priority"`
	CallType     CallType `json:"callType"`
	PatientID    string   `json:"patientId,omitempty"`
	Weight       float64  `json:"weight"`
}

// RingingCall is an incoming call together with how long it has been ringing
type RingingCall struct {
	Call        IncomingCall `json:"call"`
	RingSeconds int          `json:"ringSeconds"`
}

// Caller identifies the remote party of a session
type Caller struct {
	Number    string `json:"number"`
	Name      string `json:"name,omitempty"`
	PatientID string `json:"patientId,omitempty"`
}

// SessionSnapshot is the state of the active call session
type SessionSnapshot struct {
	Caller          Caller    `json:"caller"`
	Queue           string    `json:"queue"`
	Direction       Direction `json:"direction"`
	StartedAt       time.Time `json:"startedAt"`
	DurationSeconds int       `json:"durationSeconds"`
	DurationDisplay string    `json:"durationDisplay"`
	IsHeld          bool      `json:"isHeld"`
	HoldSeconds     int       `json:"holdSeconds"`
	HoldDisplay     string    `json:"holdDisplay"`
	IsMuted         bool      `json:"isMuted"`
}

// DispositionCode is a call outcome from the disposition catalog
type DispositionCode struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// DestinationKind describes what a transfer target is
type DestinationKind string

const (
	DestinationQueue     DestinationKind = "queue"
	DestinationDirectory DestinationKind = "directory"
	DestinationNumber    DestinationKind = "number"
)

// TransferDestination is where a call is handed off to
type TransferDestination struct {
	Kind   DestinationKind `json:"kind"`
	Name   string          `json:"name"`
	Number string          `json:"number,omitempty"`
}

// Label returns a printable name for the destination
func (d TransferDestination) Label() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Number
}

// EndReason records how a call session finished
type EndReason string

const (
	EndHangup   EndReason = "hangup"
	EndPark     EndReason = "park"
	EndTransfer EndReason = "transfer"
)

// CallRecord summarises a completed call after wrap-up
type CallRecord struct {
	DateKey         string    `json:"dateKey" dynamodbav:"DateKey"` // YYYY-MM-DD (partition key)
	CallID          string    `json:"callId" dynamodbav:"CallID"`   // sort key
	AgentID         string    `json:"agentId" dynamodbav:"AgentID"`
	CallerNumber    string    `json:"callerNumber" dynamodbav:"CallerNumber"`
	CallerName      string    `json:"callerName,omitempty" dynamodbav:"CallerName,omitempty"`
	PatientID       string    `json:"patientId,omitempty" dynamodbav:"PatientID,omitempty"`
	Queue           string    `json:"queue" dynamodbav:"Queue"`
	Direction       Direction `json:"direction" dynamodbav:"Direction"`
	StartedAt       string    `json:"startedAt" dynamodbav:"StartedAt"` // RFC3339
	EndedAt         string    `json:"endedAt" dynamodbav:"EndedAt"`     // RFC3339
	DurationSeconds int       `json:"durationSeconds" dynamodbav:"DurationSeconds"`
	HoldSeconds     int       `json:"holdSeconds" dynamodbav:"HoldSeconds"`
	WrapUpSeconds   int       `json:"wrapUpSeconds" dynamodbav:"WrapUpSeconds"`
	EndReason       EndReason `json:"endReason" dynamodbav:"EndReason"`
	ParkSlot        int       `json:"parkSlot,omitempty" dynamodbav:"ParkSlot,omitempty"`
	TransferTarget  string    `json:"transferTarget,omitempty" dynamodbav:"TransferTarget,omitempty"`
	Disposition     string    `json:"disposition" dynamodbav:"Disposition"`
}
