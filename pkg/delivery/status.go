package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirosfoundation/go-digipost/pkg/message"
	"github.com/sirosfoundation/go-digipost/pkg/transport"
)

// DocumentStatus returns the status of a document created by senderID
func (o *Orchestrator) DocumentStatus(ctx context.Context, senderID, documentUUID string) (*message.DocumentStatus, error) {
	if senderID == "" || documentUUID == "" {
		return nil, fmt.Errorf("sender id and document uuid are required")
	}

	base, err := o.operationURI(ctx, "", message.OpDocumentStatus)
	if err != nil {
		return nil, err
	}
	uri := fmt.Sprintf("%s/%s/%s", strings.TrimRight(base, "/"), url.PathEscape(senderID), url.PathEscape(documentUUID))

	var out message.DocumentStatusXML
	if err := o.transport.Get(ctx, uri, &out); err != nil {
		if errors.Is(err, transport.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s: %w", ErrDocumentNotFound, documentUUID, err)
		}
		return nil, err
	}
	return message.DocumentStatusFromXML(&out)
}
