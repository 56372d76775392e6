package console

import (
	"strings"

	"github.com/dennisdiepolder/monti/console/internal/errs"
	"github.com/dennisdiepolder/monti/console/internal/types"
)

// NormalizeNumber trims a dialed number and checks it only holds digits and
// common separators, with at least one digit.
func NormalizeNumber(number string) (string, bool) {
	number = strings.TrimSpace(number)
	if number == "" {
		return "", false
	}

	digits := 0
	for _, r := range number {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+', r == '-', r == ' ', r == '(', r == ')', r == '.':
		default:
			return "", false
		}
	}
	if digits == 0 {
		return "", false
	}
	return number, true
}

// resolveDestination checks dest against the catalog. Queue and directory
// targets must be listed; number targets only need to be dialable.
func (c *Console) resolveDestination(dest types.TransferDestination) (types.TransferDestination, error) {
	switch dest.Kind {
	case types.DestinationNumber:
		number, ok := NormalizeNumber(dest.Number)
		if !ok {
			return types.TransferDestination{}, errs.ErrInvalidDestination
		}
		return types.TransferDestination{Kind: types.DestinationNumber, Name: strings.TrimSpace(dest.Name), Number: number}, nil

	case types.DestinationQueue, types.DestinationDirectory:
		name := strings.TrimSpace(dest.Name)
		if name == "" {
			return types.TransferDestination{}, errs.ErrInvalidDestination
		}
		for _, known := range c.destinations {
			if known.Kind == dest.Kind && strings.EqualFold(known.Name, name) {
				return known, nil
			}
		}
		return types.TransferDestination{}, errs.ErrInvalidDestination

	default:
		return types.TransferDestination{}, errs.ErrInvalidDestination
	}
}

// DefaultDestinations is the built-in transfer catalog
func DefaultDestinations() []types.TransferDestination {
	return []types.TransferDestination{
		{Kind: types.DestinationQueue, Name: "General"},
		{Kind: types.DestinationQueue, Name: "Appointments"},
		{Kind: types.DestinationQueue, Name: "Billing"},
		{Kind: types.DestinationQueue, Name: "Clinical"},
		{Kind: types.DestinationQueue, Name: "Urgent Care"},
		{Kind: types.DestinationDirectory, Name: "Nurse Line", Number: "+1 555-0300"},
		{Kind: types.DestinationDirectory, Name: "Pharmacy", Number: "+1 555-0310"},
		{Kind: types.DestinationDirectory, Name: "Front Desk", Number: "+1 555-0320"},
		{Kind: types.DestinationDirectory, Name: "Supervisor", Number: "+1 555-0399"},
	}
}
