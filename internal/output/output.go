package output

import (
	"context"

	"github.com/crimson-sun/clientpulse/internal/model"
)

// Output defines the interface for report destinations.
type Output interface {
	Write(ctx context.Context, report model.Report) error
	Close() error
}
