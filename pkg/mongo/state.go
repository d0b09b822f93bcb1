package mongo

import "github.com/dmitrymomot/coursekit/pkg/statemachine"

// State is the manager's view of the connection lifecycle.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateError        State = "error"
	StateTerminated   State = "terminated"
)

// trigger is an input to the connection state machine.
type trigger string

const (
	trConnect      trigger = "connect"
	trConnected    trigger = "connected"
	trFailed       trigger = "failed"
	trDisconnected trigger = "disconnected"
	trRetry        trigger = "retry"
	trExhausted    trigger = "exhausted"
	trTerminate    trigger = "terminate"
)

func newStateMachine(canRetry statemachine.Guard[State]) *statemachine.Machine[State, trigger] {
	type t = statemachine.Transition[State, trigger]
	return statemachine.New[State, trigger](StateDisconnected,
		t{From: []State{StateDisconnected, StateError}, Event: trConnect, To: StateConnecting},
		t{From: []State{StateConnecting}, Event: trConnected, To: StateConnected},
		t{From: []State{StateConnecting}, Event: trFailed, To: StateError},
		t{From: []State{StateConnected}, Event: trDisconnected, To: StateDisconnected},
		t{From: []State{StateError, StateDisconnected}, Event: trRetry, To: StateConnecting, Guard: canRetry},
		t{From: []State{StateError, StateDisconnected}, Event: trExhausted, To: StateTerminated},
		t{
			From:  []State{StateDisconnected, StateConnecting, StateConnected, StateError},
			Event: trTerminate,
			To:    StateTerminated,
		},
	)
}

// ReadyState is the driver-level socket indicator, reported alongside State.
type ReadyState int32

const (
	ReadyDisconnected  ReadyState = 0
	ReadyConnected     ReadyState = 1
	ReadyConnecting    ReadyState = 2
	ReadyDisconnecting ReadyState = 3
)

func (r ReadyState) String() string {
	switch r {
	case ReadyConnected:
		return "connected"
	case ReadyConnecting:
		return "connecting"
	case ReadyDisconnecting:
		return "disconnecting"
	default:
		return "disconnected"
	}
}

// Status is a point-in-time snapshot of the connection.
type Status struct {
	IsConnected bool       `json:"isConnected"`
	ReadyState  ReadyState `json:"readyState"`
	Host        string     `json:"host"`
	Port        int        `json:"port"`
	State       State      `json:"state"`
	Retries     int        `json:"retries"`
}
