package digest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/feed-digest/internal/core/domain"
	coreerrors "github.com/lueurxax/feed-digest/internal/core/errors"
	"github.com/lueurxax/feed-digest/internal/core/ports"
	"github.com/lueurxax/feed-digest/internal/core/ports/mocks"
)

var (
	windowStart = time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	windowEnd   = windowStart.Add(24 * time.Hour)
)

func request() domain.BuildRequest {
	return domain.BuildRequest{ChannelID: "chan-1", WindowStart: windowStart, WindowEnd: windowEnd}
}

func item(source, url, summary string) domain.ContentItem {
	return domain.ContentItem{Source: source, Title: "Story from " + source, URL: url, Summary: summary}
}

func TestDedup(t *testing.T) {
	items := []domain.ContentItem{
		item("alpha", "https://a.example/1", "first"),
		item("beta", "https://b.example/2", "second"),
		item("gamma", "https://A.example/1#comments", "dup of first"),
		item("delta", "", "no url"),
		item("epsilon", "", "no url either"),
		item("beta", "https://b.example/2", "dup of second"),
	}

	got, dropped := Dedup(items)

	require.Len(t, got, 4)
	assert.Equal(t, 2, dropped)
	assert.Equal(t, []string{"first", "second", "no url", "no url either"},
		[]string{got[0].Summary, got[1].Summary, got[2].Summary, got[3].Summary})
}

func TestAssembleZeroItems(t *testing.T) {
	store := mocks.NewDigestStore()

	result, err := New(store, nil, Options{}, nil).Assemble(context.Background(), AssembleInput{Request: request()})
	require.NoError(t, err)

	assert.Empty(t, result.Items)
	assert.Empty(t, result.UpdatedSources)
	assert.Contains(t, result.Overview, "No new items")
	assert.Contains(t, result.Overview, "2026-10-17 08:00 UTC - 2026-10-18 08:00 UTC")
	assert.Equal(t, "digest-1", result.ID)

	records := store.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "chan-1", records[0].ChannelID)
	assert.Equal(t, windowStart, records[0].WindowStart)
	assert.Equal(t, windowEnd, records[0].WindowEnd)
}

func TestAssembleOverview(t *testing.T) {
	store := mocks.NewDigestStore()
	sink := mocks.NewMetricsSink()

	in := AssembleInput{
		Request: request(),
		Items: []domain.ContentItem{
			item("alpha", "https://a.example/1", "A1."),
			item("beta", "https://b.example/1", "B1."),
			item("alpha", "https://a.example/2", "A2."),
			item("alpha", "https://a.example/1", "duplicate"),
		},
		FailedSources: []domain.SourceFailure{{Name: "slow", Reason: "timeout"}, {Name: "gone"}},
		Meta:          domain.SummaryMeta{FallbackReason: domain.FallbackPartial, MissingContentSources: []string{"beta"}},
	}

	result, err := New(store, sink, Options{}, nil).Assemble(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, result.Items, 3)
	assert.Equal(t, []domain.SourceUpdate{{Name: "alpha", ItemCount: 2}, {Name: "beta", ItemCount: 1}}, result.UpdatedSources)
	assert.Contains(t, result.Overview, "3 new items from 2 sources: alpha (2), beta (1)")
	assert.Contains(t, result.Overview, "Failed sources: slow (timeout), gone")
	assert.Contains(t, result.Overview, "some summaries are article excerpts")
	assert.Contains(t, result.Overview, "No readable text from: beta")

	rendered := store.Records()[0].Rendered
	assert.True(t, strings.HasPrefix(rendered, result.Overview))
	assert.Contains(t, rendered, "1. Story from alpha\n   A1.")
	assert.Contains(t, rendered, "https://a.example/2")
	assert.NotContains(t, rendered, "duplicate")

	events := sink.Find(ports.MetricTypeDigest, OperationCreate)
	require.Len(t, events, 1)
	assert.Equal(t, ports.MetricStatusSuccess, events[0].Status)
	assert.Equal(t, "3", events[0].Metadata["items"])
	assert.Equal(t, result.ID, events[0].Metadata["digest_id"])
}

func TestAssembleSourceCap(t *testing.T) {
	var items []domain.ContentItem
	for _, name := range []string{"a", "b", "c", "d"} {
		items = append(items, item(name, "https://"+name+".example/", "S."))
	}

	failed := []domain.SourceFailure{{Name: "x", Reason: "404"}, {Name: "y", Reason: "dns"}, {Name: "z", Reason: "tls"}}

	result, err := New(mocks.NewDigestStore(), nil, Options{SourceCap: 2}, nil).Assemble(context.Background(), AssembleInput{
		Request:       request(),
		Items:         items,
		FailedSources: failed,
	})
	require.NoError(t, err)

	assert.Contains(t, result.Overview, "a (1), b (1), +2 more")
	assert.Contains(t, result.Overview, "x (404), y (dns), +1 more")
	assert.NotContains(t, result.Overview, "Note:")
}

func TestAssemblePersistenceFailure(t *testing.T) {
	errDB := errors.New("connection refused")
	store := mocks.NewDigestStore()
	store.CreateDigestRecordFn = func(context.Context, string, time.Time, time.Time, string) (string, error) {
		return "", errDB
	}

	sink := mocks.NewMetricsSink()

	result, err := New(store, sink, Options{}, nil).Assemble(context.Background(), AssembleInput{
		Request: request(),
		Items:   []domain.ContentItem{item("alpha", "https://a.example/1", "A1.")},
	})

	require.Nil(t, result)
	require.ErrorIs(t, err, coreerrors.ErrPersistence)
	require.ErrorIs(t, err, errDB)

	events := sink.Find(ports.MetricTypeDigest, OperationCreate)
	require.Len(t, events, 1)
	assert.Equal(t, ports.MetricStatusFailure, events[0].Status)
	assert.Equal(t, "connection refused", events[0].Metadata["error"])
}

func TestCapList(t *testing.T) {
	tests := []struct {
		name    string
		entries []string
		limit   int
		want    string
	}{
		{name: "under cap", entries: []string{"a", "b"}, limit: 3, want: "a, b"},
		{name: "at cap", entries: []string{"a", "b"}, limit: 2, want: "a, b"},
		{name: "over cap", entries: []string{"a", "b", "c"}, limit: 1, want: "a, +2 more"},
		{name: "no cap", entries: []string{"a", "b"}, limit: 0, want: "a, b"},
		{name: "empty", entries: nil, limit: 2, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, capList(tt.entries, tt.limit))
		})
	}
}
