package message

import "strings"

// Namespace and media type of the v8 API
const (
	Namespace = "http://api.digipost.no/schema/v8"
	MediaType = "application/vnd.digipost-v8+xml"
)

// RelationPrefix is the common prefix of link relations
const RelationPrefix = "https://api.digipost.no/relations/"

// Operation names. A link relation is RelationPrefix followed by the name.
const (
	OpCreateMessage                      = "create_message"
	OpIdentifyRecipient                  = "identify_recipient"
	OpIdentifyRecipientWithEncryptionKey = "identify_recipient_with_encryption_key"
	OpGetPrintEncryptionKey              = "get_print_encryption_key"
	OpGetEncryptionKey                   = "get_encryption_key"
	OpGetSenderInformation               = "get_sender_information"
	OpDocumentStatus                     = "document_status"
	OpAddContent                         = "add_content"
	OpSend                               = "send"
	OpSelf                               = "self"
)

// Relation returns the full link relation for an operation name
func Relation(op string) string {
	return RelationPrefix + op
}

// OperationName returns the last path segment of a link relation
func OperationName(rel string) string {
	rel = strings.TrimRight(rel, "/")
	if i := strings.LastIndexByte(rel, '/'); i >= 0 {
		return rel[i+1:]
	}
	return rel
}
