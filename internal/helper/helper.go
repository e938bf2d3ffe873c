// Package helper is the child process side of a call session: it places the
// call on the platform and reports its progress on stdout, one
// "status: <status>" line per change.
package helper

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xiaot623/assistdesk/internal/callsession"
	"github.com/xiaot623/assistdesk/internal/domain"
)

// Override keys that address the call instead of filling prompt variables.
const (
	OverrideCustomerNumber = "customer.number"
	OverridePhoneNumberID  = "phoneNumberId"
)

const DefaultPollInterval = 2 * time.Second

// CallPlacer is the part of the platform the helper needs.
type CallPlacer interface {
	CreateCall(ctx context.Context, req domain.CreateCallRequest) (*domain.Call, error)
	GetCall(ctx context.Context, id string) (*domain.Call, error)
}

// BuildCallRequest turns a launch spec into the POST /call body.
func BuildCallRequest(spec callsession.LaunchSpec) domain.CreateCallRequest {
	req := domain.CreateCallRequest{AssistantID: spec.AssistantID}

	vars := make(map[string]string, len(spec.Overrides))
	for k, v := range spec.Overrides {
		switch k {
		case OverrideCustomerNumber:
			if v != "" {
				req.Customer = &domain.Customer{Number: v}
			}
		case OverridePhoneNumberID:
			req.PhoneNumberID = v
		default:
			vars[k] = v
		}
	}
	if len(vars) > 0 {
		req.AssistantOverrides = &domain.AssistantOverrides{VariableValues: vars}
	}
	return req
}

// Run places the call and polls it until the platform reports it ended.
// Cancelling ctx prints "status: terminated" and returns nil.
func Run(ctx context.Context, spec callsession.LaunchSpec, calls CallPlacer, out io.Writer, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	fmt.Fprintf(out, "placing call for %s (%s)\n", spec.AgentName, spec.AssistantID)
	call, err := calls.CreateCall(ctx, BuildCallRequest(spec))
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(out, "status: terminated")
			return nil
		}
		fmt.Fprintf(out, "status: failed: %v\n", err)
		return fmt.Errorf("failed to create call: %w", err)
	}
	fmt.Fprintf(out, "call id: %s\n", call.ID)

	last := call.Status
	fmt.Fprintf(out, "status: %s\n", last)
	if last == domain.CallStatusEnded {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "status: terminated")
			return nil
		case <-ticker.C:
			current, err := calls.GetCall(ctx, call.ID)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				fmt.Fprintf(out, "status: failed: %v\n", err)
				return fmt.Errorf("failed to get call %s: %w", call.ID, err)
			}
			if current.Status != last {
				last = current.Status
				fmt.Fprintf(out, "status: %s\n", last)
			}
			if last == domain.CallStatusEnded {
				if current.EndedReason != "" {
					fmt.Fprintf(out, "ended reason: %s\n", current.EndedReason)
				}
				return nil
			}
		}
	}
}
