// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package message provides the Digipost message model and its XML wire form.

# Messages

A Message is the client side description of a letter before it is submitted:

  - ID: Caller chosen message id, the idempotency key of a delivery
  - Recipient: Exactly one of DigitalRecipient or PrintRecipient
  - Primary: The main document
  - Attachments: Further documents in their upload order

Build messages with New:

	msg, err := message.New("m-1",
	    message.DigitalRecipient{
	        ID:            message.PersonalIdentificationNumber("01017012345"),
	        PrintFallback: &details,
	    },
	    message.NewDocument("Invoice", message.FileTypePDF, message.Encrypted()),
	    message.WithAttachments(terms),
	)

# Recipients

Recipient is a closed union. A DigitalRecipient is addressed by one
Identifier and may carry print details used when the recipient is not a
Digipost user. A PrintRecipient carries print details only and can never be
combined with a digital identifier.

# Delivery State

Every exchange with the gateway returns a new DeliveryState. States are
read-only snapshots and are replaced, never modified:

	NOT_COMPLETE -> DELIVERED
	NOT_COMPLETE -> DELIVERED_TO_PRINT

Any other status reported by the gateway is rejected with ErrUnexpectedStatus.

# Wire Format

The *XML types mirror the v8 API schema in the namespace
http://api.digipost.no/schema/v8 and are used with the codec package.
*/
package message
