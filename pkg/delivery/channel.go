package delivery

import (
	"context"
	"fmt"

	"github.com/sirosfoundation/go-digipost/pkg/message"
	"github.com/sirosfoundation/go-digipost/pkg/security"
)

// printKeyCacheKey is the cache key of the shared print encryption key
const printKeyCacheKey = "print"

type keyMaterial struct {
	key       message.EncryptionKey
	encrypter *security.EnvelopeEncrypter
}

func newKeyMaterial(key *message.EncryptionKey) (*keyMaterial, error) {
	enc, err := security.NewEnvelopeEncrypter(key.PEM, key.KeyID)
	if err != nil {
		return nil, err
	}
	return &keyMaterial{key: *key, encrypter: enc}, nil
}

// Resolution is the channel chosen for a delivery and, when a document needs
// encryption, the key for that channel
type Resolution struct {
	Channel message.Channel
	// Identification is set when an identification call was made
	Identification *message.IdentificationResult
	key            *keyMaterial
}

// KeyID returns the id of the encryption key, or "" when nothing is encrypted
func (r *Resolution) KeyID() string {
	if r.key == nil {
		return ""
	}
	return r.key.key.KeyID
}

func (r *Resolution) encrypt(content []byte) ([]byte, error) {
	if r.key == nil {
		return nil, &security.EncryptionError{Op: "encrypt", Err: fmt.Errorf("no encryption key for channel %s", r.Channel)}
	}
	return r.key.encrypter.Encrypt(content)
}

// ResolveChannel decides whether msg is delivered digitally or by print.
//
// A print recipient goes to print without identification. A digital
// recipient without print fallback goes to Digipost without identification;
// when a document needs encryption the personal key is read from the
// encryption key link of state, and a recipient the gateway offers no key
// for leaves no channel. A digital recipient with print fallback is
// identified once: a Digipost user gets the digital channel and the
// personal key, anyone else print and the shared print key. The result must
// agree with the channel reported in state.
func (o *Orchestrator) ResolveChannel(ctx context.Context, msg *message.Message, state *message.DeliveryState) (*Resolution, error) {
	needsKey := msg.RequiresEncryption()
	res := &Resolution{}

	switch r := msg.Recipient.(type) {
	case message.PrintRecipient:
		res.Channel = message.ChannelPrint
		if needsKey {
			key, err := o.printKey(ctx)
			if err != nil {
				return nil, err
			}
			res.key = key
		}

	case message.DigitalRecipient:
		if !r.HasPrintFallback() {
			res.Channel = message.ChannelDigipost
			if needsKey {
				key, err := o.deliveryKey(ctx, msg, state)
				if err != nil {
					return nil, err
				}
				res.key = key
			}
			break
		}

		result, personal, err := o.identify(ctx, msg.SenderID, r.ID, needsKey)
		if err != nil {
			return nil, err
		}
		res.Identification = result

		switch {
		case result.IsSubscriber():
			res.Channel = message.ChannelDigipost
			if needsKey {
				if personal == nil {
					return nil, &security.EncryptionError{Op: "identify", Err: fmt.Errorf("gateway returned no key for a Digipost user")}
				}
				if res.key, err = newKeyMaterial(personal); err != nil {
					return nil, err
				}
			}
		case r.HasPrintFallback():
			res.Channel = message.ChannelPrint
			if needsKey {
				if res.key, err = o.printKey(ctx); err != nil {
					return nil, err
				}
			}
		default:
			return nil, fmt.Errorf("%w: %s is not a Digipost user (%s)", ErrNoDeliveryChannel, msg.ID, result.Code)
		}

	default:
		return nil, fmt.Errorf("%w: unsupported recipient type %T", message.ErrInvalidRecipient, msg.Recipient)
	}

	if state != nil && state.Channel() != "" && state.Channel() != res.Channel {
		return nil, fmt.Errorf("%w: gateway reports %s, resolved %s", ErrChannelMismatch, state.Channel(), res.Channel)
	}

	o.logger.Debug("Channel resolved", "message_id", msg.ID, "channel", res.Channel, "key_id", res.KeyID())
	return res, nil
}

// deliveryKey fetches the personal key of the recipient of a created
// digital delivery
func (o *Orchestrator) deliveryKey(ctx context.Context, msg *message.Message, state *message.DeliveryState) (*keyMaterial, error) {
	if state == nil {
		return nil, fmt.Errorf("%w: encrypting for %s needs the created delivery", ErrInvalidStateTransition, msg.ID)
	}
	link := state.EncryptionKeyLink()
	if link == "" {
		return nil, fmt.Errorf("%w: %s has no encryption key, the recipient is not a Digipost user", ErrNoDeliveryChannel, msg.ID)
	}

	var out message.EncryptionKeyXML
	if err := o.transport.Get(ctx, link, &out); err != nil {
		return nil, err
	}
	key, err := message.EncryptionKeyFromXML(&out)
	if err != nil {
		return nil, &security.EncryptionError{Op: "recipient key", Err: err}
	}
	return newKeyMaterial(key)
}

// identify makes one identification call, asking for the personal key when
// withKey is set
func (o *Orchestrator) identify(ctx context.Context, senderID string, id message.Identifier, withKey bool) (*message.IdentificationResult, *message.EncryptionKey, error) {
	if !withKey {
		result, err := o.Identify(ctx, senderID, id)
		return result, nil, err
	}
	return o.RecipientEncryptionKey(ctx, senderID, id)
}

// Identify reports whether a recipient can be reached through Digipost
func (o *Orchestrator) Identify(ctx context.Context, senderID string, id message.Identifier) (*message.IdentificationResult, error) {
	if id == nil {
		return nil, fmt.Errorf("%w: identifier is required", message.ErrInvalidRecipient)
	}
	uri, err := o.operationURI(ctx, senderID, message.OpIdentifyRecipient)
	if err != nil {
		return nil, err
	}

	var out message.IdentificationResultXML
	if err := o.transport.Post(ctx, uri, message.IdentifierToXML(id), &out); err != nil {
		return nil, err
	}
	return message.IdentificationResultFromXML(&out)
}

// RecipientEncryptionKey identifies a recipient and returns their personal
// encryption key. The key is nil when the recipient is not a Digipost user.
func (o *Orchestrator) RecipientEncryptionKey(ctx context.Context, senderID string, id message.Identifier) (*message.IdentificationResult, *message.EncryptionKey, error) {
	if id == nil {
		return nil, nil, fmt.Errorf("%w: identifier is required", message.ErrInvalidRecipient)
	}
	uri, err := o.operationURI(ctx, senderID, message.OpIdentifyRecipientWithEncryptionKey)
	if err != nil {
		return nil, nil, err
	}

	var out message.IdentificationResultWithKeyXML
	if err := o.transport.Post(ctx, uri, message.IdentifierToXML(id), &out); err != nil {
		return nil, nil, err
	}
	result, err := message.IdentificationResultFromXML(out.IdentificationResult)
	if err != nil {
		return nil, nil, err
	}
	if out.EncryptionKey == nil {
		return result, nil, nil
	}
	key, err := message.EncryptionKeyFromXML(out.EncryptionKey)
	if err != nil {
		return nil, nil, &security.EncryptionError{Op: "identify", Err: err}
	}
	return result, key, nil
}

// PrintEncryptionKey returns the shared print key, fetching it when the
// cached copy has expired
func (o *Orchestrator) PrintEncryptionKey(ctx context.Context) (*message.EncryptionKey, error) {
	km, err := o.printKey(ctx)
	if err != nil {
		return nil, err
	}
	key := km.key
	return &key, nil
}

func (o *Orchestrator) printKey(ctx context.Context) (*keyMaterial, error) {
	return o.printKeys.Get(ctx, printKeyCacheKey, func(ctx context.Context) (*keyMaterial, error) {
		uri, err := o.operationURI(ctx, "", message.OpGetPrintEncryptionKey)
		if err != nil {
			return nil, err
		}

		var out message.EncryptionKeyXML
		if err := o.transport.Get(ctx, uri, &out); err != nil {
			return nil, err
		}
		key, err := message.EncryptionKeyFromXML(&out)
		if err != nil {
			return nil, &security.EncryptionError{Op: "print key", Err: err}
		}
		return newKeyMaterial(key)
	})
}
