// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package security implements the message security layer of the Digipost API:
content digests, request/response signatures and document envelope encryption.

# Content Digests

Every request and response body is bound to its signature by a SHA-256
digest carried base64 encoded in the X-Content-SHA256 header:

	digest := security.DigestBase64(body)

Payloads read from a stream must be buffered in full before hashing, since
the hashed bytes are the bytes that are later transmitted:

	body, sum, err := security.DigestReader(r)

# Signatures

Requests are signed with RSA-SHA256 (PKCS#1 v1.5) over a canonical string
built from the method, the lower-cased path, the Date, X-Content-SHA256 and
X-Digipost-UserId headers and the lower-cased query:

	signer, err := security.NewSigner(privateKey)
	sig, err := signer.Sign(security.CanonicalRequest{
	    Method: "POST",
	    Path:   "/messages",
	    Date:   "Tue, 15 Nov 1994 08:12:31 GMT",
	    UserID: "12345",
	    Digest: security.DigestBase64(body),
	})

Responses are verified against the gateway certificate published in the
entry point:

	verifier, err := security.NewVerifier(cert)
	err = verifier.Verify(security.CanonicalResponse{...}, sig)

A failed verification is reported as ErrSignatureVerification and must never
be retried.

# Envelope Encryption

Documents that require encryption are wrapped for a single recipient key in
an XML Encryption envelope:

  - AES-256-GCM: Content encryption with a fresh key per document
  - RSA-OAEP (SHA-256): Key transport
  - KeyName: The key id from the gateway, carried unmodified

Example:

	encrypter, err := security.NewEnvelopeEncrypter(key.PEM, key.KeyID)
	envelope, err := encrypter.Encrypt(pdf)

# References

  - RFC 9110 Date header: https://www.rfc-editor.org/rfc/rfc9110#name-date
  - XML Encryption 1.1: https://www.w3.org/TR/xmlenc-core1/
  - RSA-OAEP: https://www.rfc-editor.org/rfc/rfc8017#section-7.1
*/
package security
