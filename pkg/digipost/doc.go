// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package digipost provides the main client interface for sending letters
through the Digipost gateway.

# Client Creation

	client, err := digipost.NewClient(&digipost.ClientConfig{
	    BaseURL: digipost.TestURL,
	    UserID:  "123456",
	    Key:     signingKey,
	})
	if err != nil {
	    return err
	}
	defer client.Close()

The client signs every request with Key and verifies every response with the
certificate published in the gateway entry point. Entry points, sender
information and the print encryption key are cached and refreshed when they
have not been used for a while.

# Sending Letters

	msg, err := message.New(message.NewMessageID(),
	    message.DigitalRecipient{
	        ID:            message.PersonalIdentificationNumber("01017012345"),
	        PrintFallback: &printDetails,
	    },
	    message.NewDocument("Invoice", message.FileTypePDF, message.Encrypted()),
	)

	state, err := client.Deliver(ctx, msg, delivery.Contents{
	    msg.Primary.UUID: bytes.NewReader(pdf),
	})

Deliver is safe to repeat with the same message. See package delivery for
the retry and error model.

# Lookups

	result, err := client.Identify(ctx, message.PersonalIdentificationNumber("01017012345"))
	info, err := client.GetSenderInformation(ctx, senderinfo.BySenderID("123456"))
	status, err := client.GetDocumentStatus(ctx, "", documentUUID)
*/
package digipost
