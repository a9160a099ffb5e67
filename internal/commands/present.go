package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gaborage/b2c2-cli/b2c2"
	"github.com/gaborage/b2c2-cli/httpclient"
)

const communicationFailed = "The communication with the API failed. Please review the error below and try again"

var statusMessages = map[int]string{
	http.StatusUnauthorized: "You are not authorized to do this operation",
	http.StatusForbidden:    "You are not allowed to do this operation",
}

// presentError writes a user-facing report of err.
func presentError(w io.Writer, err error) {
	var fe *flagError
	switch {
	case errors.Is(err, errAborted):
		fmt.Fprintln(w, "Aborted!")
	case errors.As(err, &fe):
		fmt.Fprintf(w, "Error: %v\n", err)
	case errors.Is(err, context.Canceled):
		fmt.Fprintf(w, "Error: %v\n", err)
	case isCommunicationFailure(err):
		fmt.Fprintln(w, communicationFailed)
		fmt.Fprintln(w, err)
		if _, apiErrs, ok := b2c2.APIErrors(err); ok {
			printAPIErrors(w, apiErrs)
		}
	case httpclient.IsErrorType(err, httpclient.HTTPError):
		presentHTTPError(w, err)
	default:
		fmt.Fprintf(w, "Error: %v\n", err)
	}
}

// isCommunicationFailure reports failures where the API could not be reached,
// kept failing until the attempt budget ran out, or outlived the deadline.
func isCommunicationFailure(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) ||
		httpclient.IsErrorType(err, httpclient.NetworkError) ||
		httpclient.IsErrorType(err, httpclient.TimeoutError) ||
		httpclient.IsErrorType(err, httpclient.RetriesExhaustedError)
}

func presentHTTPError(w io.Writer, err error) {
	status, apiErrs, ok := b2c2.APIErrors(err)
	if msg, known := statusMessages[status]; known {
		fmt.Fprintln(w, msg)
	}
	if !ok || len(apiErrs) == 0 {
		fmt.Fprintln(w, err)
		return
	}
	printAPIErrors(w, apiErrs)
}

func printAPIErrors(w io.Writer, apiErrs []b2c2.APIError) {
	for _, apiErr := range apiErrs {
		fmt.Fprintln(w, apiErr.String())
	}
}
