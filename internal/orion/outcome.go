package orion

import "fmt"

type OutcomeKind int

const (
	Updated OutcomeKind = iota + 1
	Created
	Rejected
	TransportFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case Updated:
		return "updated"
	case Created:
		return "created"
	case Rejected:
		return "rejected"
	case TransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Outcome is the result of one reconciliation attempt. Code is the HTTP status
// that decided it, 0 when the request never got a response.
type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Code   int         `json:"code,omitempty"`
	Reason string      `json:"reason,omitempty"`
	Body   string      `json:"body,omitempty"`
}

func (o Outcome) Ok() bool {
	return o.Kind == Updated || o.Kind == Created
}

func (o Outcome) String() string {
	switch o.Kind {
	case Updated, Created:
		return o.Kind.String()
	case Rejected:
		return fmt.Sprintf("rejected: %s", o.Reason)
	default:
		if o.Reason != "" {
			return fmt.Sprintf("transport failure %d: %s", o.Code, o.Reason)
		}
		return fmt.Sprintf("transport failure %d", o.Code)
	}
}

func RejectedOutcome(reason string) Outcome {
	return Outcome{Kind: Rejected, Reason: reason}
}

func failure(code int, reason string, body []byte) Outcome {
	return Outcome{Kind: TransportFailure, Code: code, Reason: reason, Body: string(body)}
}
