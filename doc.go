// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package godigipost is a client for the Digipost document delivery gateway.

# Overview

go-digipost sends letters to Digipost users, to postal addresses through the
Digipost print service, and to Digipost users with a postal address as
fallback. Every request is signed with the sender's RSA key and every
response is verified against the certificate published by the gateway.
Delivery is idempotent: the caller chooses the message id, and repeating a
delivery with the same id never sends the letter twice.

# Package Structure

	github.com/sirosfoundation/go-digipost/pkg/digipost    - Main client API
	github.com/sirosfoundation/go-digipost/pkg/delivery    - Create, upload and send orchestration
	github.com/sirosfoundation/go-digipost/pkg/message     - Messages, recipients and the XML wire model
	github.com/sirosfoundation/go-digipost/pkg/security    - Request signing, response verification, document encryption
	github.com/sirosfoundation/go-digipost/pkg/transport   - HTTPS transport and the signed request layer
	github.com/sirosfoundation/go-digipost/pkg/entrypoint  - Cached gateway entry point
	github.com/sirosfoundation/go-digipost/pkg/senderinfo  - Cached sender information and features
	github.com/sirosfoundation/go-digipost/pkg/cache       - Expiring single-flight cache
	github.com/sirosfoundation/go-digipost/pkg/reliability - Send tracking for concurrent callers
	github.com/sirosfoundation/go-digipost/pkg/codec       - XML marshalling helpers

# Quick Start

	client, err := digipost.NewClient(&digipost.ClientConfig{
	    BaseURL: digipost.TestURL,
	    UserID:  "123456",
	    Key:     signingKey,
	})
	if err != nil {
	    return err
	}
	defer client.Close()

	doc := message.NewDocument("Invoice", message.FileTypePDF)
	msg, err := message.New("invoice-2024-0001",
	    message.DigitalRecipient{ID: message.PersonalIdentificationNumber("01017012345")},
	    doc,
	)
	state, err := client.Deliver(ctx, msg, delivery.Contents{doc.UUID: bytes.NewReader(pdf)})

# Command Line

The digipost command in cmd/digipost wraps the client. It reads a YAML
configuration file, loads the signing key from PEM files, a PKCS#12 bundle
or a PKCS#11 token, and offers the send, identify, sender-info and
document-status commands.

# License

BSD-2-Clause License
*/
package godigipost
