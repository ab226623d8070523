// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package delivery drives a letter through the Digipost gateway.

A delivery is a strictly sequential exchange:

 1. Create: the message is registered. If the message id is known the
    existing delivery is fetched instead and compared with the message.
 2. Resolve channel: digital or print, identifying the recipient when that
    decides the channel or supplies the encryption key.
 3. Upload content: primary document first, then attachments in order,
    encrypted when flagged.
 4. Send: the gateway moves the message to a terminal state.

	state, err := orchestrator.Deliver(ctx, msg, delivery.Contents{
	    msg.Primary.UUID: bytes.NewReader(pdf),
	})

# Retries

Nothing is retried internally. A failed delivery is retried by calling
Deliver again with the same message id: creation is idempotent, a message
that was delivered in the meantime is reported as an AlreadyDeliveredError
carrying the terminal state, and a message this process has already sent is
never dispatched twice.

	var delivered *delivery.AlreadyDeliveredError
	if errors.As(err, &delivered) {
	    // treat as success
	}

# Errors

  - ErrDuplicateMessageID: the id was used for a different message
  - ErrNoDeliveryChannel: the recipient is not a Digipost user and there is
    no print fallback
  - ErrChannelMismatch: the gateway resolved another channel
  - ErrInvalidStateTransition: upload or send out of order
  - ErrDocumentNotFound: unknown document in a status lookup
*/
package delivery
