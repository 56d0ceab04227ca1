package smstrade

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Status is the status code returned by the gateway for a sent message.
type Status int

const (
	StatusInvalidReceiver      Status = 10  // receiver number not valid
	StatusInvalidSender        Status = 20  // sender number not valid
	StatusInvalidMessageText   Status = 30  // message text not valid
	StatusInvalidMessageType   Status = 31  // message type not valid
	StatusInvalidRoute         Status = 40  // SMS route not valid
	StatusIdentificationFailed Status = 50  // identification failed
	StatusNotEnoughBalance     Status = 60  // not enough balance in account
	StatusNetworkNotSupported  Status = 70  // network is not supported by the route
	StatusFeatureNotPossible   Status = 71  // feature is not possible for the route
	StatusSMSCHandoverFailed   Status = 80  // handover to SMSC failed
	StatusOK                   Status = 100 // SMS has been sent successfully
	StatusOKDelayed            Status = 999 // SMS will be sent time-delayed
)

var statusText = map[Status]string{
	StatusInvalidReceiver:      "receiver number not valid",
	StatusInvalidSender:        "sender number not valid",
	StatusInvalidMessageText:   "message text not valid",
	StatusInvalidMessageType:   "message type not valid",
	StatusInvalidRoute:         "SMS route not valid",
	StatusIdentificationFailed: "identification failed",
	StatusNotEnoughBalance:     "not enough balance in account",
	StatusNetworkNotSupported:  "network not supported by the route",
	StatusFeatureNotPossible:   "feature not possible for the route",
	StatusSMSCHandoverFailed:   "handover to SMSC failed",
	StatusOK:                   "SMS sent",
	StatusOKDelayed:            "SMS will be sent time-delayed",
}

func (s Status) String() string {
	if text, ok := statusText[s]; ok {
		return text
	}
	return "unknown status " + strconv.Itoa(int(s))
}

// OK reports whether the gateway accepted the message.
func (s Status) OK() bool { return s == StatusOK || s == StatusOKDelayed }

// Result is the parsed gateway response for one recipient. MessageID, Cost
// and Count are only filled when they were requested.
type Result struct {
	Status    Status          // gateway status code
	MessageID string          // gateway message identifier
	Cost      decimal.Decimal // price of the message
	Count     int             // number of SMS parts
}

// responseFields selects the optional response lines requested from the
// gateway.
type responseFields struct {
	messageID bool
	cost      bool
	count     bool
}

// parseResponse reads the response body: status, message id, cost and part
// count, one per line in that order.
func parseResponse(body string, fields responseFields) (*Result, error) {
	body = strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(body)
	lines := strings.Split(strings.TrimSuffix(body, "\n"), "\n")
	line := func(n int) (string, error) {
		if n >= len(lines) {
			return "", fmt.Errorf("%w: %d lines", ErrMalformedResponse, len(lines))
		}
		return strings.TrimSpace(lines[n]), nil
	}
	s, err := line(0)
	if err != nil {
		return nil, err
	}
	status, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("%w: status %q", ErrMalformedResponse, s)
	}
	result := &Result{Status: Status(status)}
	if fields.messageID {
		if result.MessageID, err = line(1); err != nil {
			return nil, err
		}
	}
	if fields.cost {
		if s, err = line(2); err != nil {
			return nil, err
		}
		if result.Cost, err = decimal.NewFromString(s); err != nil {
			return nil, fmt.Errorf("%w: cost %q", ErrMalformedResponse, s)
		}
	}
	if fields.count {
		if s, err = line(3); err != nil {
			return nil, err
		}
		if result.Count, err = strconv.Atoi(s); err != nil {
			return nil, fmt.Errorf("%w: count %q", ErrMalformedResponse, s)
		}
	}
	return result, nil
}
