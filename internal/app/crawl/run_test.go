package crawl

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/pxcrawl/internal/domain"
	"github.com/John-Robertt/pxcrawl/internal/rank"
)

type stubSource struct {
	ids    []domain.WorkID
	err    error
	idx    *rank.Memory
	resets int
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) ProduceIdentifiers(context.Context) ([]domain.WorkID, error) {
	return s.ids, s.err
}

func (s *stubSource) ResetListingState() { s.resets++ }

func (s *stubSource) RankIndex() rank.Index { return s.idx }

func (s *stubSource) Ordering() domain.Ordering { return domain.OrderRank }

func TestRun_UsesSourcePreferences(t *testing.T) {
	idx := rank.NewMemory()
	idx.Set("2", 1)
	src := &stubSource{ids: ids("1", "2"), idx: idx}

	c := newFakeClient(map[domain.WorkID]*script{"1": staticWork("1", 1), "2": staticWork("2", 1)})
	rep, err := Run(context.Background(), src, Options{RunID: "r1"}, Deps{Client: c})
	require.NoError(t, err)

	assert.Equal(t, 1, src.resets, "播种后调用一次 ResetListingState")
	assert.Equal(t, "stub", rep.Source)
	assert.Equal(t, "r1", rep.RunID)
	assert.Equal(t, []string{"2_p0", "1_p0"}, recordIDs(rep.Records))
	assert.Equal(t, "#1", rep.Records[0].Rank)
}

func TestRun_ConfiguredOrderingWinsAndRanksChain(t *testing.T) {
	srcIdx := rank.NewMemory()
	extra := rank.NewMemory()
	extra.Set("1", 9)
	src := &stubSource{ids: ids("1", "2"), idx: srcIdx}

	c := newFakeClient(map[domain.WorkID]*script{"1": staticWork("1", 1), "2": staticWork("2", 1)})
	rep, err := Run(context.Background(), src, Options{Ordering: domain.OrderSeq}, Deps{Client: c, Ranks: extra})
	require.NoError(t, err)
	assert.Equal(t, []string{"1_p0", "2_p0"}, recordIDs(rep.Records))
	assert.Equal(t, "#9", rep.Records[0].Rank)
}

func TestRun_ListingErrorAbortsBeforeFetch(t *testing.T) {
	boom := errors.New("listing failed")
	src := &stubSource{err: boom}
	c := newFakeClient(nil)

	_, err := Run(context.Background(), src, Options{}, Deps{Client: c})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, src.resets)
	assert.Equal(t, 0, c.totalCalls())
}
