package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sirosfoundation/go-digipost/pkg/cache"
	"github.com/sirosfoundation/go-digipost/pkg/entrypoint"
	"github.com/sirosfoundation/go-digipost/pkg/message"
	"github.com/sirosfoundation/go-digipost/pkg/reliability"
	"github.com/sirosfoundation/go-digipost/pkg/transport"
)

// ContentTypeOctetStream is sent with uploaded document content
const ContentTypeOctetStream = "application/octet-stream"

// EntryPoints resolves operation links
type EntryPoints interface {
	Get(ctx context.Context, senderID string) (*entrypoint.EntryPoint, error)
}

// Exchanger performs signed exchanges with the gateway.
// *transport.SignedTransport implements it.
type Exchanger interface {
	Get(ctx context.Context, uri string, out any, opts ...transport.ExchangeOption) error
	Post(ctx context.Context, uri string, in, out any, opts ...transport.ExchangeOption) error
	PostContent(ctx context.Context, uri string, content []byte, contentType string, out any) error
}

// Contents holds document content by document UUID
type Contents map[string]io.Reader

// Config configures an Orchestrator
type Config struct {
	EntryPoints EntryPoints
	Transport   Exchanger
	// Tracker guards against sending a message twice. A tracker with the
	// default window is created when nil.
	Tracker *reliability.SendTracker
	// Validator checks content before anything is uploaded. Optional.
	Validator ContentValidator
	// PrintKeyTTL is the expiry of the cached print key
	PrintKeyTTL time.Duration
	Now         func() time.Time
	Logger      *slog.Logger
}

// Orchestrator drives a message from creation to a terminal state
type Orchestrator struct {
	entryPoints EntryPoints
	transport   Exchanger
	tracker     *reliability.SendTracker
	validator   ContentValidator
	printKeys   *cache.Cache[*keyMaterial]
	logger      *slog.Logger
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if cfg.EntryPoints == nil {
		return nil, fmt.Errorf("entry points are required")
	}
	if cfg.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if cfg.Tracker == nil {
		cfg.Tracker = reliability.NewSendTracker(reliability.DefaultWindow)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		entryPoints: cfg.EntryPoints,
		transport:   cfg.Transport,
		tracker:     cfg.Tracker,
		validator:   cfg.Validator,
		printKeys: cache.New[*keyMaterial](cache.Config{
			Name:   "printkey",
			TTL:    cfg.PrintKeyTTL,
			Now:    cfg.Now,
			Logger: logger,
		}),
		logger: logger.With("component", "delivery"),
	}, nil
}

// Deliver runs the whole delivery of msg: create or fetch, resolve the
// channel, upload every document and send. When the message had already been
// delivered the terminal state is returned together with an
// *AlreadyDeliveredError.
func (o *Orchestrator) Deliver(ctx context.Context, msg *message.Message, contents Contents) (*message.DeliveryState, error) {
	logger := o.logger.With("message_id", msg.ID)

	state, err := o.Create(ctx, msg)
	if err != nil {
		var delivered *AlreadyDeliveredError
		if errors.As(err, &delivered) {
			logger.Info("Message already delivered", "status", delivered.State.Status())
			return delivered.State, err
		}
		return nil, err
	}

	resolution, err := o.ResolveChannel(ctx, msg, state)
	if err != nil {
		return nil, err
	}

	state, err = o.UploadContent(ctx, msg, state, resolution, contents)
	if err != nil {
		return nil, err
	}

	state, err = o.Send(ctx, state)
	if err != nil {
		return nil, err
	}

	logger.Info("Message delivered", "status", state.Status(), "channel", state.Channel())
	return state, nil
}

// Create registers msg with the gateway. If the message id is already known
// the existing delivery is fetched and compared with msg: a different
// message yields ErrDuplicateMessageID, a delivered one an
// *AlreadyDeliveredError, and an incomplete one is returned for the caller
// to continue.
func (o *Orchestrator) Create(ctx context.Context, msg *message.Message) (*message.DeliveryState, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	logger := o.logger.With("message_id", msg.ID)

	uri, err := o.operationURI(ctx, msg.SenderID, message.OpCreateMessage)
	if err != nil {
		return nil, err
	}

	var out message.MessageDeliveryXML
	err = o.transport.Post(ctx, uri, msg.ToXML(), &out)
	if err == nil {
		state, err := message.NewDeliveryState(&out)
		if err != nil {
			return nil, err
		}
		logger.Debug("Message created", "state", state.String())
		return state, nil
	}

	var serverErr *transport.ServerError
	if !errors.As(err, &serverErr) || serverErr.Status != 409 {
		return nil, err
	}
	if serverErr.Location == "" {
		return nil, fmt.Errorf("message %s exists but the gateway gave no location: %w", msg.ID, err)
	}

	logger.Info("Message id already registered, fetching existing delivery", "location", serverErr.Location)
	return o.fetchExisting(ctx, serverErr.Location, msg)
}

func (o *Orchestrator) fetchExisting(ctx context.Context, location string, msg *message.Message) (*message.DeliveryState, error) {
	state, err := o.fetchState(ctx, location)
	if err != nil {
		return nil, err
	}

	if err := sameMessage(state, msg); err != nil {
		return nil, err
	}
	if state.IsTerminal() {
		return nil, &AlreadyDeliveredError{State: state}
	}
	return state, nil
}

func (o *Orchestrator) fetchState(ctx context.Context, uri string) (*message.DeliveryState, error) {
	var out message.MessageDeliveryXML
	if err := o.transport.Get(ctx, uri, &out); err != nil {
		return nil, err
	}
	return message.NewDeliveryState(&out)
}

// sameMessage reports whether an existing delivery was created from msg
func sameMessage(state *message.DeliveryState, msg *message.Message) error {
	if state.MessageID() != msg.ID {
		return fmt.Errorf("%w: gateway returned message %s for %s", ErrDuplicateMessageID, state.MessageID(), msg.ID)
	}
	key, err := state.RecipientKey()
	if err != nil {
		return fmt.Errorf("%w: cannot compare the recipient of message %s: %v", ErrDuplicateMessageID, msg.ID, err)
	}
	if key != msg.Recipient.Key() {
		return fmt.Errorf("%w: message %s was created for another recipient", ErrDuplicateMessageID, msg.ID)
	}

	existing := state.DocumentUUIDs()
	docs := msg.Documents()
	if len(existing) != len(docs) {
		return fmt.Errorf("%w: message %s was created with %d documents, not %d", ErrDuplicateMessageID, msg.ID, len(existing), len(docs))
	}
	for i, d := range docs {
		if existing[i] != d.UUID {
			return fmt.Errorf("%w: message %s was created with document %s, not %s", ErrDuplicateMessageID, msg.ID, existing[i], d.UUID)
		}
	}
	return nil
}

// UploadContent uploads the content of every document of msg, primary first
// and attachments in declared order. Documents flagged for encryption are
// encrypted with the key of the resolved channel. Content is only accepted
// while state is NOT_COMPLETE.
func (o *Orchestrator) UploadContent(ctx context.Context, msg *message.Message, state *message.DeliveryState, resolution *Resolution, contents Contents) (*message.DeliveryState, error) {
	if state.Status() != message.StatusNotComplete {
		return nil, fmt.Errorf("%w: cannot upload content to %s", ErrInvalidStateTransition, state)
	}
	if state.MessageID() != msg.ID {
		return nil, fmt.Errorf("%w: state %s does not belong to message %s", ErrInvalidStateTransition, state.MessageID(), msg.ID)
	}
	if resolution == nil {
		return nil, fmt.Errorf("%w: channel has not been resolved", ErrInvalidStateTransition)
	}
	logger := o.logger.With("message_id", msg.ID, "channel", resolution.Channel)

	docs := msg.Documents()
	payloads := make([][]byte, len(docs))
	for i, doc := range docs {
		r, ok := contents[doc.UUID]
		if !ok || r == nil {
			return nil, fmt.Errorf("%w: no content for document %s", message.ErrInvalidMessage, doc.UUID)
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read content of document %s: %w", doc.UUID, err)
		}
		if o.validator != nil {
			if err := o.validator.Validate(ctx, msg, resolution.Channel, doc, data); err != nil {
				return nil, err
			}
		}
		payloads[i] = data
	}

	latest := state
	for i, doc := range docs {
		if latest.Status() != message.StatusNotComplete {
			return nil, fmt.Errorf("%w: cannot upload document %s to %s", ErrInvalidStateTransition, doc.UUID, latest)
		}
		registered, ok := latest.Document(doc.UUID)
		if !ok || registered.AddContentLink == "" {
			return nil, fmt.Errorf("%w: document %s has no add-content link", ErrInvalidStateTransition, doc.UUID)
		}

		content := payloads[i]
		if doc.Encrypt {
			encrypted, err := resolution.encrypt(content)
			if err != nil {
				return nil, err
			}
			content = encrypted
		}

		var out message.MessageDeliveryXML
		if err := o.transport.PostContent(ctx, registered.AddContentLink, content, ContentTypeOctetStream, &out); err != nil {
			return nil, err
		}
		next, err := message.NewDeliveryState(&out)
		if err != nil {
			return nil, err
		}
		latest = next

		logger.Debug("Document uploaded", "document", doc.UUID, "encrypted", doc.Encrypt, "bytes", len(content))
	}

	return latest, nil
}

// Send dispatches a message that has all content uploaded. A terminal state
// is returned as is. A message this process has already sent returns the
// recorded terminal state without contacting the gateway.
func (o *Orchestrator) Send(ctx context.Context, state *message.DeliveryState) (*message.DeliveryState, error) {
	if state.IsTerminal() {
		return state, nil
	}
	if state.SendLink() == "" {
		return nil, fmt.Errorf("%w: %s has no send link", ErrInvalidStateTransition, state)
	}

	key := reliability.Key(state.SenderID(), state.MessageID())
	result, dispatched, err := o.tracker.Dispatch(ctx, key, func(ctx context.Context) (*message.DeliveryState, error) {
		return o.send(ctx, state)
	})
	if err != nil {
		return nil, err
	}
	if !dispatched {
		o.logger.Info("Send answered from tracker", "message_id", state.MessageID(), "status", result.Status())
	}
	return result, nil
}

func (o *Orchestrator) send(ctx context.Context, state *message.DeliveryState) (*message.DeliveryState, error) {
	var out message.MessageDeliveryXML
	err := o.transport.Post(ctx, state.SendLink(), nil, &out)

	var serverErr *transport.ServerError
	if errors.As(err, &serverErr) && serverErr.Status == 409 && serverErr.Location != "" {
		// sent by an earlier attempt whose response was lost
		existing, err := o.fetchState(ctx, serverErr.Location)
		if err != nil {
			return nil, err
		}
		if !existing.IsTerminal() {
			return nil, fmt.Errorf("%w: send rejected for %s", ErrInvalidStateTransition, existing)
		}
		return existing, nil
	}
	if err != nil {
		return nil, err
	}

	result, err := message.NewDeliveryState(&out)
	if err != nil {
		return nil, err
	}
	if !result.IsTerminal() {
		return nil, fmt.Errorf("%w: send returned %s", message.ErrUnexpectedStatus, result.Status())
	}
	return result, nil
}

func (o *Orchestrator) operationURI(ctx context.Context, senderID, op string) (string, error) {
	ep, err := o.entryPoints.Get(ctx, senderID)
	if err != nil {
		return "", err
	}
	return ep.URI(op)
}
