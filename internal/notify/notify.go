// Package notify tells transport coordinators about new registrations.
package notify

import (
	"context"
	"errors"
	"fmt"

	"transport-register/internal/models"
)

// Notifier delivers a registration notice to coordinators
type Notifier interface {
	Name() string
	NotifyRegistration(ctx context.Context, reg models.Registration) error
}

// Multi fans a notice out to several notifiers
type Multi []Notifier

// Name returns the notifier name
func (m Multi) Name() string { return "multi" }

// NotifyRegistration sends to every notifier and joins their errors
func (m Multi) NotifyRegistration(ctx context.Context, reg models.Registration) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyRegistration(ctx, reg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Message renders the coordinator notice for a registration
func Message(reg models.Registration) string {
	return fmt.Sprintf("New transport registration\n%s, pickup at %s\nPhone: %s\nTo church: %d, from church: %d",
		reg.FullName, reg.Location, reg.PhoneNumber, reg.WorshippersToChurch, reg.WorshippersFromChurch)
}
