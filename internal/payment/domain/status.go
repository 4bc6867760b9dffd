package domain

// Status is the lifecycle state of a payment
type Status string

// Payment statuses
const (
	StatusPending   Status = "pending"
	StatusCaptured  Status = "captured"
	StatusRefunded  Status = "refunded"
	StatusCancelled Status = "cancelled"
)

// Action is a state-changing operation requested through Process
type Action string

// Process actions
const (
	ActionCapture Action = "capture"
	ActionRefund  Action = "refund"
	ActionCancel  Action = "cancel"
)

// transitions lists every permitted edge of the state machine
var transitions = map[Status]map[Action]Status{
	StatusPending: {
		ActionCapture: StatusCaptured,
		ActionCancel:  StatusCancelled,
	},
	StatusCaptured: {
		ActionRefund: StatusRefunded,
	},
}

// resultOf maps an action to the status it produces
var resultOf = map[Action]Status{
	ActionCapture: StatusCaptured,
	ActionRefund:  StatusRefunded,
	ActionCancel:  StatusCancelled,
}

// ParseAction accepts only the exact tokens capture, refund and cancel
func ParseAction(raw string) (Action, error) {
	action := Action(raw)
	if _, ok := resultOf[action]; !ok {
		return "", &ValidationError{Field: "action", Value: raw, Reason: "invalid action"}
	}
	return action, nil
}

// IsValid reports whether s is one of the known statuses
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusCaptured, StatusRefunded, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no action is permitted from s
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Rank orders statuses along the state machine. Every permitted edge strictly increases it.
func (s Status) Rank() int {
	switch s {
	case StatusCaptured, StatusCancelled:
		return 1
	case StatusRefunded:
		return 2
	default:
		return 0
	}
}

// Result returns the status a successful action leaves the payment in
func (a Action) Result() Status {
	return resultOf[a]
}

// NextStatus applies action to current. The returned error is an *InvalidTransitionError
// whose Replay flag is set when action already produced current.
func NextStatus(current Status, action Action) (Status, error) {
	if next, ok := transitions[current][action]; ok {
		return next, nil
	}
	return current, &InvalidTransitionError{
		Current: current,
		Action:  action,
		Replay:  resultOf[action] == current,
	}
}
