package senderinfo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-digipost/pkg/codec"
	"github.com/sirosfoundation/go-digipost/pkg/entrypoint"
	"github.com/sirosfoundation/go-digipost/pkg/message"
	"github.com/sirosfoundation/go-digipost/pkg/transport"
)

type staticEntryPoints struct {
	ep *entrypoint.EntryPoint
}

func (s staticEntryPoints) Get(ctx context.Context, senderID string) (*entrypoint.EntryPoint, error) {
	return s.ep, nil
}

type fakeFetcher struct {
	mu      sync.Mutex
	uris    []string
	calls   atomic.Int64
	docs    map[string]Document
	release chan struct{}
}

func (f *fakeFetcher) Get(ctx context.Context, uri string, out any, opts ...transport.ExchangeOption) error {
	f.calls.Add(1)
	f.mu.Lock()
	f.uris = append(f.uris, uri)
	f.mu.Unlock()

	if f.release != nil {
		<-f.release
	}
	doc, ok := f.docs[uri]
	if !ok {
		return &transport.ServerError{Status: 404, Code: "SENDER_NOT_FOUND", Verified: true}
	}
	*out.(*Document) = doc
	return nil
}

func newTestCache(t *testing.T, fetcher *fakeFetcher) *Cache {
	t.Helper()

	ep, err := entrypoint.New([]entrypoint.Link{{
		Rel: message.Relation(message.OpGetSenderInformation),
		URI: "https://api.test/sender-information/",
	}}, nil)
	require.NoError(t, err)

	c, err := NewCache(Config{EntryPoints: staticEntryPoints{ep: ep}, Fetcher: fetcher})
	require.NoError(t, err)
	return c
}

func testDocuments() map[string]Document {
	return map[string]Document{
		"https://api.test/sender-information/1001": {
			SenderID: "1001",
			Status:   string(StatusValidSender),
			SupportedFeatures: []FeatureXML{
				{Identifier: FeaturePrintNonPDF},
			},
		},
		"https://api.test/sender-information/984661185/billing": {
			SenderID: "1002",
			Status:   string(StatusValidSender),
		},
	}
}

func TestCache_GetBySenderID(t *testing.T) {
	fetcher := &fakeFetcher{docs: testDocuments()}
	c := newTestCache(t, fetcher)

	info, err := c.Get(context.Background(), BySenderID("1001"))
	require.NoError(t, err)

	assert.True(t, info.IsValid())
	assert.True(t, info.HasFeature(FeaturePrintNonPDF))
	assert.False(t, info.HasFeature("no.digipost.feature.other"))
}

func TestCache_GetByOrganisation(t *testing.T) {
	fetcher := &fakeFetcher{docs: testDocuments()}
	c := newTestCache(t, fetcher)

	info, err := c.Get(context.Background(), ByOrganisation("984661185", "billing"))
	require.NoError(t, err)
	assert.Equal(t, "1002", info.SenderID)
	assert.False(t, info.HasFeature(FeaturePrintNonPDF))

	assert.Equal(t, []string{"https://api.test/sender-information/984661185/billing"}, fetcher.uris)
}

func TestCache_CachesPerLookup(t *testing.T) {
	fetcher := &fakeFetcher{docs: testDocuments()}
	c := newTestCache(t, fetcher)

	for i := 0; i < 3; i++ {
		_, err := c.Get(context.Background(), BySenderID("1001"))
		require.NoError(t, err)
		_, err = c.Get(context.Background(), ByOrganisation("984661185", "billing"))
		require.NoError(t, err)
	}

	assert.Equal(t, int64(2), fetcher.calls.Load())
	assert.Equal(t, int64(2), c.Fetches())
}

func TestCache_SingleFlight(t *testing.T) {
	fetcher := &fakeFetcher{docs: testDocuments(), release: make(chan struct{})}
	c := newTestCache(t, fetcher)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Get(context.Background(), BySenderID("1001"))
			assert.NoError(t, err)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(fetcher.release)
	wg.Wait()

	assert.Equal(t, int64(1), fetcher.calls.Load())
}

func TestCache_NotFoundIsNotCached(t *testing.T) {
	fetcher := &fakeFetcher{docs: testDocuments()}
	c := newTestCache(t, fetcher)

	_, err := c.Get(context.Background(), BySenderID("9999"))
	assert.True(t, errors.Is(err, transport.ErrNotFound))

	_, err = c.Get(context.Background(), BySenderID("9999"))
	assert.Error(t, err)
	assert.Equal(t, int64(2), fetcher.calls.Load())
}

func TestLookup_Validation(t *testing.T) {
	c := newTestCache(t, &fakeFetcher{})

	_, err := c.Get(context.Background(), Lookup{})
	assert.Error(t, err)

	_, err = c.Get(context.Background(), Lookup{SenderID: "1", OrgNumber: "2"})
	assert.Error(t, err)
}

func TestLookup_Key(t *testing.T) {
	assert.Equal(t, "id:1001", BySenderID("1001").Key())
	assert.Equal(t, "org:984661185/billing", ByOrganisation("984661185", "billing").Key())
	assert.NotEqual(t, BySenderID("984661185").Key(), ByOrganisation("984661185", "").Key())
}

func TestDocument_XML(t *testing.T) {
	data := []byte(`<sender-information xmlns="http://api.digipost.no/schema/v8">
  <sender-id>1001</sender-id>
  <sender-status>VALID_SENDER</sender-status>
  <supported-features>
    <feature><identifier>no.digipost.feature.print.non-pdf</identifier></feature>
    <feature><identifier>no.digipost.feature.datatypes</identifier><param>v2</param></feature>
  </supported-features>
</sender-information>`)

	var doc Document
	require.NoError(t, codec.XML.Unmarshal(data, &doc))

	info, err := FromDocument(&doc)
	require.NoError(t, err)
	assert.Equal(t, "1001", info.SenderID)
	require.Len(t, info.Features, 2)
	assert.Equal(t, Feature{Identifier: "no.digipost.feature.datatypes", Param: "v2"}, info.Features[1])
}

func TestFromDocument_UnknownStatus(t *testing.T) {
	_, err := FromDocument(&Document{Status: "SUSPENDED"})
	assert.ErrorIs(t, err, message.ErrUnexpectedStatus)
}
