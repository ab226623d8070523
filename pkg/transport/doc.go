// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package transport implements the HTTP layer of the Digipost client.

The package has two layers:

  - HTTPSClient: A plain HTTPTransport over net/http with TLS 1.2/1.3,
    timeouts and an optional client side rate limit
  - SignedTransport: Wraps any HTTPTransport, signs every request and
    verifies every response before it is returned

# TLS Configuration

The package recommends TLS 1.3 with fallback to TLS 1.2:

	config := transport.DefaultHTTPSConfig()
	// MinTLSVersion: TLS 1.2
	// MaxTLSVersion: TLS 1.3

# Client Usage

	client := transport.NewHTTPSClient(&transport.HTTPSConfig{
	    MinTLSVersion: transport.TLS12,
	    Timeout:       30 * time.Second,
	    RateLimit:     10, // requests per second
	})

	signed, err := transport.NewSignedTransport(client, transport.SignedConfig{
	    UserID:       "12345",
	    Signer:       signer,
	    Certificates: entryPoints,
	})

	var delivery message.MessageDeliveryXML
	err = signed.Post(ctx, createURI, msg.ToXML(), &delivery)

# Response Verification

Successful and 409 responses must carry valid Date, X-Content-SHA256 and
X-Digipost-Signature headers. Other error responses are verified when they
are signed and are otherwise reported as unverified ServerErrors. A
verification failure is returned as security.ErrSignatureVerification and
the response body is never decoded.

# Errors

  - *TransportError: The exchange did not complete (ErrTransport)
  - *ServerError: The gateway answered with a non-2xx status
  - ErrNotFound, ErrConflict: Matched by ServerError for 404 and 409
*/
package transport
