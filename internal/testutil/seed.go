package testutil

import (
	"context"
	"testing"

	"github.com/openagora/agora/core"
)

// TacoPalace is a small business profile shared by many tests.
func TacoPalace() core.BusinessProfile {
	return core.BusinessProfile{
		ID:   "biz-taco",
		Name: "Taco Palace",
		Menu: map[string]float64{
			"Taco":    3.50,
			"Burrito": 8.00,
		},
		Amenities: map[string]bool{"vegan": true, "parking": false},
		Rating:    4.2,
	}
}

// HungryAlex is a small customer profile shared by many tests.
func HungryAlex() core.CustomerProfile {
	return core.CustomerProfile{
		ID:   "cust-alex",
		Name: "Alex",
		WTP:  map[string]float64{"Taco": 5.00},
	}
}

// MustSend appends an already-successful send_message record to the log and
// returns the action. Use it to seed logs for analytics and filter tests
// without going through the protocol layer.
func MustSend(t *testing.T, log core.ActionLog, from, to string, msg core.Message) core.Action {
	t.Helper()
	a, err := core.NewSendMessageAction(from, to, msg)
	if err != nil {
		t.Fatalf("build send_message action: %v", err)
	}
	a.Result = core.ActionResult{Content: []byte(`"ok"`)}
	if _, err := log.Append(context.Background(), a); err != nil {
		t.Fatalf("append action: %v", err)
	}
	return a
}

// MustSendErrored appends a rejected send_message record to the log.
func MustSendErrored(t *testing.T, log core.ActionLog, from, to string, msg core.Message, errText string) core.Action {
	t.Helper()
	a, err := core.NewSendMessageAction(from, to, msg)
	if err != nil {
		t.Fatalf("build send_message action: %v", err)
	}
	a.Result = core.ActionResult{IsError: true, Error: errText}
	if _, err := log.Append(context.Background(), a); err != nil {
		t.Fatalf("append action: %v", err)
	}
	return a
}
