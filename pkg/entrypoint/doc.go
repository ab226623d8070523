// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package entrypoint discovers the operations offered by the Digipost gateway.

The gateway publishes an entry point document at the root of the API. It maps
operation names to resource links and carries the certificate the gateway
signs its responses with. Every other URI the client uses is either taken
from the entry point or from a link in a later response.

# Entry Points

An EntryPoint is immutable. Operation names are the last path segment of a
link relation and are unique within one entry point:

	ep, err := cache.Get(ctx, "")
	uri, err := ep.URI(message.OpCreateMessage)

A sender scoped entry point is fetched from /<sender-id> and is cached
separately from the default one:

	ep, err := cache.Get(ctx, "984661185")

# Caching

Entry points expire five minutes after they were last read. Concurrent callers
that find no fresh value share a single fetch and all receive its result or
its error. Failed fetches are not cached.

The entry point is requested without response verification, since it is the
document that publishes the verification certificate. Certificate returns
that certificate for the signed transport:

	certs := transport.CertificateProviderFunc(cache.Certificate)
*/
package entrypoint
