package feed

import (
	"testing"
	"time"

	"github.com/Luismorlan/socialmux/model"
	"github.com/stretchr/testify/assert"
)

func baseRow(itemId string, at time.Time) *model.FeedRow {
	return &model.FeedRow{Item: model.ContentItem{Id: itemId, CreatedAt: at}}
}

func TestCursorAdvanceGrowsLimit(t *testing.T) {
	c := NewCursor(10)
	assert.Equal(t, 10, c.Limit())
	c.Advance()
	assert.Equal(t, 20, c.Limit())
	c.Reset()
	assert.Equal(t, 10, c.Limit())
}

func TestCursorMergeAppendKeepsExistingOrder(t *testing.T) {
	c := NewCursor(2)

	first := c.MergeAppend(nil, &BuildResult{
		Rows:    []*model.FeedRow{baseRow("b", t0.Add(time.Hour)), baseRow("a", t0)},
		HasMore: true,
	})
	assert.Equal(t, []string{"b", "a"}, rowIds(first))
	assert.True(t, c.HasMore())

	// The re-built page ranks c above the already seen rows; the seen prefix
	// must stay put and only c may append.
	c.Advance()
	second := c.MergeAppend(first, &BuildResult{
		Rows: []*model.FeedRow{
			baseRow("c", t0.Add(2*time.Hour)),
			baseRow("b", t0.Add(time.Hour)),
			baseRow("a", t0),
		},
		HasMore: false,
	})
	assert.Equal(t, []string{"b", "a", "c"}, rowIds(second))
	assert.False(t, c.HasMore())
}

func TestCursorMergeAppendDropsSignalVariantsOfSeenItems(t *testing.T) {
	c := NewCursor(1)
	first := c.MergeAppend(nil, &BuildResult{
		Rows: []*model.FeedRow{baseRow("a", t0)},
	})

	variant := baseRow("a", t0)
	variant.Signal = &model.ActivitySignal{Kind: model.SignalKindRepost, At: t0.Add(time.Hour)}
	second := c.MergeAppend(first, &BuildResult{
		Rows: []*model.FeedRow{variant, baseRow("a", t0)},
	})

	// An item already on screen contributes no new rows, even under a fresh
	// signal, until the next full reload.
	assert.Equal(t, []string{"a"}, rowIds(second))
}

func rowIds(rows []*model.FeedRow) []string {
	ids := []string{}
	for _, row := range rows {
		ids = append(ids, row.Item.Id)
	}
	return ids
}
