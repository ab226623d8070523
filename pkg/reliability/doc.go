// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package reliability keeps a delivery client from sending a letter twice.

The gateway makes message creation idempotent by message id, and a delivery
that has already reached a terminal state is never sent again. The send tracker
adds a local guard for the window in which a client holds a stale snapshot:
once this process has observed a terminal state for a message id, later sends
of that id return the recorded state without contacting the gateway.

# Send Tracker

	tracker := reliability.NewSendTracker(24*time.Hour,
	    reliability.WithCleanupInterval(time.Hour))
	defer tracker.Close()

	state, dispatched, err := tracker.Dispatch(ctx, reliability.Key(senderID, messageID), func(ctx context.Context) (*message.DeliveryState, error) {
	    return send(ctx, link)
	})

Concurrent Dispatch calls for the same key share a single call to the
send function. A failed send is not remembered, so the caller may retry the
whole delivery with the same message id.
*/
package reliability
