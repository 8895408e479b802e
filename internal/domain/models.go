package domain

import "time"

// Domain contains core models shared by the app, the ledger and publishers.

// Operation names an invoice-level gateway call.
type Operation string

const (
	OperationReporting  Operation = "reporting"
	OperationClearance  Operation = "clearance"
	OperationCompliance Operation = "compliance"
)

// Submission is the outcome of one invoice sent to the gateway.
type Submission struct {
	UUID        string    `json:"uuid"`
	Operation   Operation `json:"operation"`
	Environment string    `json:"environment"`
	InvoiceHash string    `json:"invoice_hash"`
	Status      string    `json:"status"`
	StatusCode  int       `json:"status_code"`
	Warnings    int       `json:"warnings"`
	Errors      int       `json:"errors"`
	Rejected    bool      `json:"rejected"`
	SubmittedAt time.Time `json:"submitted_at"`
}
