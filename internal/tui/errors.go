package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/pders01/citycast/internal/listctl"
)

// wrapErr formats an error with a contextual prefix.
func wrapErr(context string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// quietErr reports errors that are logged but never shown in the status bar.
func quietErr(err error) bool {
	return errors.Is(err, listctl.ErrAlreadyLoading) ||
		errors.Is(err, listctl.ErrExhausted) ||
		errors.Is(err, context.Canceled)
}
