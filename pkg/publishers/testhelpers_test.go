package publishers

import (
	"time"

	"github.com/samvad-hq/fatoora-client/internal/domain"
)

func sampleEvent() Event {
	return NewEvent("fatoora", domain.Submission{
		UUID:        "3cf5ee18-ee25-44ea-a444-2c37ba7f28be",
		Operation:   domain.OperationReporting,
		Environment: "sandbox",
		InvoiceHash: "MA==",
		Status:      "REPORTED",
		StatusCode:  200,
		SubmittedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	})
}
