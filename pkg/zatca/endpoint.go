package zatca

// Endpoint is a gateway path relative to the environment base URL.
type Endpoint string

const (
	EndpointReporting             Endpoint = "invoices/reporting/single"
	EndpointClearance             Endpoint = "invoices/clearance/single"
	EndpointCompliance            Endpoint = "compliance/invoices"
	EndpointComplianceCertificate Endpoint = "compliance"
	EndpointProductionCertificate Endpoint = "production/csids"
)

// Endpoints lists every path the client can call.
func Endpoints() []Endpoint {
	return []Endpoint{
		EndpointReporting,
		EndpointClearance,
		EndpointCompliance,
		EndpointComplianceCertificate,
		EndpointProductionCertificate,
	}
}

func (e Endpoint) String() string { return string(e) }
