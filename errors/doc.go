// Package errors provides the failure taxonomy for the campaignpulse client.
//
// # Overview
//
// Every failure the fetch client raises is a *Failure. Callers do not switch on
// Go types; they switch on Class and Status:
//
//   - ClassRateLimited: 429 after the rate-limit retry budget was spent
//   - ClassClientError: any other non-success status below 500
//   - ClassServerError: 5xx
//   - ClassNetwork: no response obtained, after the network retry budget
//   - ClassCancelled: the caller's context was cancelled (never retried)
//   - ClassDecode: a 2xx body that could not be parsed (never retried)
//   - ClassInvalid: local configuration or argument validation
//
// Failures are raised once, after all local recovery is done, and are
// propagated verbatim. Nothing above the fetch client retries.
//
// # Quick Start
//
//	campaign, err := svc.Get(ctx, id)
//	if err != nil {
//	    switch class, _ := errors.ClassOf(err); {
//	    case errors.IsNotFound(err):
//	        show("not found")
//	    case class == errors.ClassCancelled:
//	        return
//	    default:
//	        show(errors.UserMessage(err))
//	    }
//	}
//
// # Error Wrapping Pattern
//
// Internal wrapping follows the format "component.method: action failed: %w":
//
//	return errors.Wrap(err, "SSESource", "Open", "build request")
//
// Validation failures use WrapInvalid so they carry ClassInvalid:
//
//	return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "base_url is required")
//
// The standard library's errors.Is and errors.As work through Failure.Unwrap,
// and errors.Is(err, ErrRateLimited) / errors.Is(err, ErrNotFound) match on
// classification and status.
package errors
