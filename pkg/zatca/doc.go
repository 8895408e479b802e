// Package zatca is a client for the ZATCA Fatoora e-invoicing gateway.
//
// It covers invoice reporting and clearance, compliance checks, and the
// compliance/production CSID lifecycle. Every call is a single synchronous
// HTTP request; replies carrying an errors array come back as *Error with
// Kind == KindRequest and the array under the "errors" context key.
//
// Basic usage:
//
//	client, err := zatca.NewFromName("simulation",
//	    zatca.WithCredentials(certificate, secret),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := client.Reporting(ctx, signedXML, invoiceHash, invoiceUUID, false)
//	if err != nil {
//	    if zerr, ok := zatca.AsError(err); ok {
//	        fmt.Println(zerr.Errors())
//	    }
//	    log.Fatal(err)
//	}
//	fmt.Println("Status:", resp.ReportingStatus)
package zatca
