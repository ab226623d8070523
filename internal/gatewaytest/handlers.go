package gatewaytest

import (
	"crypto/rsa"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sirosfoundation/go-digipost/pkg/codec"
	"github.com/sirosfoundation/go-digipost/pkg/entrypoint"
	"github.com/sirosfoundation/go-digipost/pkg/message"
	"github.com/sirosfoundation/go-digipost/pkg/security"
	"github.com/sirosfoundation/go-digipost/pkg/senderinfo"
)

type storedMessage struct {
	xml         *message.MessageXML
	senderID    string
	status      message.MessageStatus
	channel     message.Channel
	subscriber  *subscriber
	created     time.Time
	deliveredAt *time.Time
	content     map[string]*Upload
	// echo replaces the recipient in returned states when echoSet
	echo    *message.RecipientXML
	echoSet bool
}

func (m *storedMessage) documents() []*message.DocumentXML {
	docs := []*message.DocumentXML{m.xml.PrimaryDocument}
	return append(docs, m.xml.Attachments...)
}

func (m *storedMessage) document(uuid string) *message.DocumentXML {
	for _, d := range m.documents() {
		if d.UUID == uuid {
			return d
		}
	}
	return nil
}

// Message returns the status, channel and uploads of a stored message
func (g *Gateway) Message(id string) (message.MessageStatus, message.Channel, map[string]Upload, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	m, ok := g.messages[id]
	if !ok {
		return "", "", nil, false
	}
	uploads := make(map[string]Upload, len(m.content))
	for uuid, u := range m.content {
		uploads[uuid] = *u
	}
	return m.status, m.channel, uploads, true
}

// EchoRecipient makes the gateway return recipient instead of the one the
// message was created with. A nil recipient is left out of the state.
func (g *Gateway) EchoRecipient(id string, recipient *message.RecipientXML) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if m, ok := g.messages[id]; ok {
		m.echo = recipient
		m.echoSet = true
	}
}

// MarkDelivered completes a message as if a send had succeeded whose
// response never reached the client
func (g *Gateway) MarkDelivered(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	m, ok := g.messages[id]
	if !ok || m.channel == "" {
		return false
	}
	g.deliver(m)
	return true
}

func (g *Gateway) deliver(m *storedMessage) {
	now := time.Now().UTC().Truncate(time.Second)
	m.status = m.channel.TerminalStatus()
	m.deliveredAt = &now
	g.sends.Add(1)
}

func (g *Gateway) link(op, path string) message.LinkXML {
	return message.LinkXML{Rel: message.Relation(op), URI: g.URL + path, MediaType: message.MediaType}
}

func messagePath(id string) string {
	return "/messages/" + url.PathEscape(id)
}

func (g *Gateway) deliveryXML(m *storedMessage) *message.MessageDeliveryXML {
	id := m.xml.MessageID
	terminal := m.status.IsTerminal()

	doc := func(d *message.DocumentXML) *message.DocumentXML {
		out := &message.DocumentXML{
			UUID:      d.UUID,
			Subject:   d.Subject,
			FileType:  d.FileType,
			Encrypted: d.Encrypted,
		}
		if !terminal {
			out.Links = []message.LinkXML{
				g.link(message.OpAddContent, messagePath(id)+"/documents/"+url.PathEscape(d.UUID)+"/content"),
			}
		}
		return out
	}

	x := &message.MessageDeliveryXML{
		MessageID:       id,
		SenderID:        m.senderID,
		DeliveryMethod:  string(m.channel),
		Status:          string(m.status),
		DeliveryTime:    m.deliveredAt,
		Recipient:       m.xml.Recipient,
		PrimaryDocument: doc(m.xml.PrimaryDocument),
		Links:           []message.LinkXML{g.link(message.OpSelf, messagePath(id))},
	}
	if m.echoSet {
		x.Recipient = m.echo
	}
	for _, a := range m.xml.Attachments {
		x.Attachments = append(x.Attachments, doc(a))
	}
	if !terminal {
		x.Links = append(x.Links, g.link(message.OpSend, messagePath(id)+"/send"))
		if m.subscriber != nil {
			x.Links = append(x.Links, g.link(message.OpGetEncryptionKey, messagePath(id)+"/encryption-key"))
		}
	}
	return x
}

func (g *Gateway) handleEntryPoint(w http.ResponseWriter, r *http.Request) {
	g.entryPointFetches.Add(1)

	g.respond(w, r, http.StatusOK, &entrypoint.Document{
		Certificate: string(g.certPEM),
		Links: []message.LinkXML{
			g.link(message.OpCreateMessage, "/messages"),
			g.link(message.OpIdentifyRecipient, "/identification"),
			g.link(message.OpIdentifyRecipientWithEncryptionKey, "/identification/encryption-key"),
			g.link(message.OpGetPrintEncryptionKey, "/printkey"),
			g.link(message.OpGetSenderInformation, "/sender-information"),
			g.link(message.OpDocumentStatus, "/documents/status"),
		},
	})
}

func (g *Gateway) handleCreate(w http.ResponseWriter, r *http.Request) {
	g.creates.Add(1)

	body, _ := io.ReadAll(r.Body)
	var in message.MessageXML
	if err := codec.XML.Unmarshal(body, &in); err != nil {
		g.fail(w, r, http.StatusBadRequest, "INVALID_MESSAGE", err.Error())
		return
	}
	if in.MessageID == "" || in.PrimaryDocument == nil {
		g.fail(w, r, http.StatusBadRequest, "INVALID_MESSAGE", "message id and primary document are required")
		return
	}
	recipient, err := message.RecipientFromXML(in.Recipient)
	if err != nil {
		g.fail(w, r, http.StatusBadRequest, "INVALID_RECIPIENT", err.Error())
		return
	}

	g.mu.Lock()
	if _, exists := g.messages[in.MessageID]; exists {
		g.mu.Unlock()
		w.Header().Set("Location", g.URL+messagePath(in.MessageID))
		g.fail(w, r, http.StatusConflict, "DUPLICATE_MESSAGE_ID", "a message with id "+in.MessageID+" already exists")
		return
	}

	m := &storedMessage{
		xml:      &in,
		senderID: in.SenderID,
		status:   message.StatusNotComplete,
		created:  time.Now().UTC().Truncate(time.Second),
		content:  make(map[string]*Upload),
	}
	if m.senderID == "" {
		m.senderID = g.UserID
	}

	switch rcp := recipient.(type) {
	case message.PrintRecipient:
		m.channel = message.ChannelPrint
	case message.DigitalRecipient:
		if s, ok := g.subscribers[message.DigitalRecipient{ID: rcp.ID}.Key()]; ok {
			m.channel = message.ChannelDigipost
			m.subscriber = s
		} else if rcp.HasPrintFallback() {
			m.channel = message.ChannelPrint
		}
	}

	g.messages[in.MessageID] = m
	out := g.deliveryXML(m)
	g.mu.Unlock()

	w.Header().Set("Location", g.URL+messagePath(in.MessageID))
	g.respond(w, r, http.StatusCreated, out)
}

func (g *Gateway) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "messageID")

	g.mu.Lock()
	m, ok := g.messages[id]
	var out *message.MessageDeliveryXML
	if ok {
		out = g.deliveryXML(m)
	}
	g.mu.Unlock()

	if !ok {
		g.fail(w, r, http.StatusNotFound, "MESSAGE_NOT_FOUND", "no message with id "+id)
		return
	}
	g.respond(w, r, http.StatusOK, out)
}

func (g *Gateway) handleUpload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "messageID")
	uuid := chi.URLParam(r, "uuid")
	body, _ := io.ReadAll(r.Body)

	g.mu.Lock()
	status, code, msg, out := g.upload(id, uuid, body)
	g.mu.Unlock()

	if code != "" {
		g.fail(w, r, status, code, msg)
		return
	}
	g.respond(w, r, status, out)
}

func (g *Gateway) upload(id, uuid string, body []byte) (int, string, string, *message.MessageDeliveryXML) {
	m, ok := g.messages[id]
	if !ok {
		return http.StatusNotFound, "MESSAGE_NOT_FOUND", "no message with id " + id, nil
	}
	if m.status != message.StatusNotComplete {
		return http.StatusBadRequest, "MESSAGE_ALREADY_DELIVERED", "message " + id + " is " + string(m.status), nil
	}
	doc := m.document(uuid)
	if doc == nil {
		return http.StatusNotFound, "DOCUMENT_NOT_FOUND", "no document " + uuid, nil
	}
	if len(body) == 0 {
		return http.StatusBadRequest, "EMPTY_CONTENT", "document content is empty", nil
	}

	upload := &Upload{Raw: body, Plaintext: body}
	if doc.Encrypted != nil {
		key, keyID := g.decryptionKey(m)
		if key == nil {
			return http.StatusBadRequest, "NO_ENCRYPTION_KEY", "no key for channel " + string(m.channel), nil
		}
		envelope, err := security.ParseEnvelope(body)
		if err != nil {
			return http.StatusBadRequest, "INVALID_ENCRYPTED_CONTENT", err.Error(), nil
		}
		if envelope.KeyName() != keyID {
			return http.StatusBadRequest, "WRONG_ENCRYPTION_KEY", "content encrypted for " + envelope.KeyName(), nil
		}
		plain, err := security.DecryptEnvelope(body, key)
		if err != nil {
			return http.StatusBadRequest, "INVALID_ENCRYPTED_CONTENT", err.Error(), nil
		}
		upload.Plaintext = plain
		upload.KeyName = envelope.KeyName()
	}

	m.content[uuid] = upload
	g.uploads.Add(1)
	return http.StatusOK, "", "", g.deliveryXML(m)
}

func (g *Gateway) decryptionKey(m *storedMessage) (*rsa.PrivateKey, string) {
	switch {
	case m.channel == message.ChannelPrint:
		return g.printKey, g.printKeyID
	case m.subscriber != nil:
		return m.subscriber.key, m.subscriber.keyID
	default:
		return nil, ""
	}
}

func (g *Gateway) handleSend(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "messageID")

	g.mu.Lock()
	status, code, msg, out := g.send(id)
	g.mu.Unlock()

	if code != "" {
		if status == http.StatusConflict {
			w.Header().Set("Location", g.URL+messagePath(id))
		}
		g.fail(w, r, status, code, msg)
		return
	}
	g.respond(w, r, status, out)
}

func (g *Gateway) send(id string) (int, string, string, *message.MessageDeliveryXML) {
	m, ok := g.messages[id]
	if !ok {
		return http.StatusNotFound, "MESSAGE_NOT_FOUND", "no message with id " + id, nil
	}
	if m.status.IsTerminal() {
		return http.StatusConflict, "MESSAGE_ALREADY_DELIVERED", "message " + id + " is " + string(m.status), nil
	}
	if m.channel == "" {
		return http.StatusBadRequest, "UNKNOWN_RECIPIENT", "recipient is not a Digipost user and has no print fallback", nil
	}
	for _, d := range m.documents() {
		if _, ok := m.content[d.UUID]; !ok {
			return http.StatusBadRequest, "MISSING_CONTENT", "document " + d.UUID + " has no content", nil
		}
	}

	g.deliver(m)
	return http.StatusOK, "", "", g.deliveryXML(m)
}

func (g *Gateway) identify(r *http.Request) (*message.IdentificationResultXML, *subscriber) {
	g.identifications.Add(1)

	body, _ := io.ReadAll(r.Body)
	var in message.IdentificationXML
	if err := codec.XML.Unmarshal(body, &in); err != nil {
		return &message.IdentificationResultXML{Result: string(message.Invalid), InvalidReason: "INVALID_REQUEST"}, nil
	}
	id, err := message.IdentifierFromXML(&in)
	if err != nil {
		return &message.IdentificationResultXML{Result: string(message.Invalid), InvalidReason: "INVALID_IDENTIFIER"}, nil
	}

	g.mu.Lock()
	s, ok := g.subscribers[message.DigitalRecipient{ID: id}.Key()]
	g.mu.Unlock()

	if !ok {
		return &message.IdentificationResultXML{Result: string(message.Identified)}, nil
	}
	return &message.IdentificationResultXML{
		Result:          string(message.IdentifiedDigipost),
		DigipostAddress: s.address,
	}, s
}

func (g *Gateway) handleIdentify(w http.ResponseWriter, r *http.Request) {
	result, _ := g.identify(r)
	g.respond(w, r, http.StatusOK, result)
}

func (g *Gateway) handleIdentifyWithKey(w http.ResponseWriter, r *http.Request) {
	result, s := g.identify(r)
	out := &message.IdentificationResultWithKeyXML{IdentificationResult: result}
	if s != nil {
		pemData, err := security.EncodePublicKeyPEM(&s.key.PublicKey)
		if err != nil {
			g.fail(w, r, http.StatusInternalServerError, "KEY_ERROR", err.Error())
			return
		}
		out.EncryptionKey = &message.EncryptionKeyXML{KeyID: s.keyID, Value: string(pemData)}
	}
	g.respond(w, r, http.StatusOK, out)
}

func (g *Gateway) handleRecipientKey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "messageID")

	g.mu.Lock()
	var s *subscriber
	m, ok := g.messages[id]
	if ok {
		s = m.subscriber
	}
	g.mu.Unlock()

	if !ok {
		g.fail(w, r, http.StatusNotFound, "MESSAGE_NOT_FOUND", "no message with id "+id)
		return
	}
	if s == nil {
		g.fail(w, r, http.StatusNotFound, "NO_ENCRYPTION_KEY", "recipient of "+id+" has no encryption key")
		return
	}
	pemData, err := security.EncodePublicKeyPEM(&s.key.PublicKey)
	if err != nil {
		g.fail(w, r, http.StatusInternalServerError, "KEY_ERROR", err.Error())
		return
	}
	g.respond(w, r, http.StatusOK, &message.EncryptionKeyXML{KeyID: s.keyID, Value: string(pemData)})
}

func (g *Gateway) handlePrintKey(w http.ResponseWriter, r *http.Request) {
	g.printKeyFetches.Add(1)

	pemData, err := security.EncodePublicKeyPEM(&g.printKey.PublicKey)
	if err != nil {
		g.fail(w, r, http.StatusInternalServerError, "KEY_ERROR", err.Error())
		return
	}
	g.respond(w, r, http.StatusOK, &message.EncryptionKeyXML{KeyID: g.printKeyID, Value: string(pemData)})
}

func (g *Gateway) handleSenderInformation(w http.ResponseWriter, r *http.Request) {
	var keys []string
	if org := chi.URLParam(r, "orgNumber"); org != "" {
		keys = append(keys, senderinfo.ByOrganisation(org, chi.URLParam(r, "partID")).Key())
	} else {
		id := chi.URLParam(r, "senderID")
		keys = append(keys, senderinfo.BySenderID(id).Key(), senderinfo.ByOrganisation(id, "").Key())
	}

	g.mu.Lock()
	var (
		doc   senderinfo.Document
		found bool
	)
	for _, k := range keys {
		if doc, found = g.senders[k]; found {
			break
		}
	}
	g.mu.Unlock()

	if !found {
		g.respond(w, r, http.StatusOK, &senderinfo.Document{Status: string(senderinfo.StatusNoInfoAvailable)})
		return
	}
	g.respond(w, r, http.StatusOK, &doc)
}

func (g *Gateway) handleDocumentStatus(w http.ResponseWriter, r *http.Request) {
	senderID := chi.URLParam(r, "senderID")
	uuid := chi.URLParam(r, "uuid")

	g.mu.Lock()
	var out *message.DocumentStatusXML
	for _, m := range g.messages {
		if m.senderID != senderID {
			continue
		}
		d := m.document(uuid)
		if d == nil {
			continue
		}
		out = &message.DocumentStatusXML{
			UUID:              uuid,
			DeliveryStatus:    string(message.DocumentNotDelivered),
			Channel:           string(m.channel),
			IsPrimaryDocument: d == m.xml.PrimaryDocument,
			Created:           m.created,
		}
		if m.status.IsTerminal() {
			out.DeliveryStatus = string(message.DocumentDelivered)
			out.Delivered = m.deliveredAt
		}
		if u, ok := m.content[uuid]; ok {
			out.ContentHash = security.DigestBase64(u.Raw)
		}
		break
	}
	g.mu.Unlock()

	if out == nil {
		g.fail(w, r, http.StatusNotFound, "DOCUMENT_NOT_FOUND", "no document "+uuid+" for sender "+senderID)
		return
	}
	g.respond(w, r, http.StatusOK, out)
}
