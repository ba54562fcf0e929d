package feed

import (
	"github.com/Luismorlan/socialmux/model"
)

// DefaultPageSize is how many more candidate items each LoadMore pulls in.
const DefaultPageSize = 20

// Cursor drives incremental re-invocation of the builder for infinite
// scroll: every page grows the row limit and merge-appends only unseen items
// so already rendered rows never reorder underneath the viewer.
type Cursor struct {
	pageSize int
	limit    int
	hasMore  bool
	seen     map[string]bool
}

func NewCursor(pageSize int) *Cursor {
	return &Cursor{
		pageSize: pageSize,
		limit:    pageSize,
		hasMore:  true,
		seen:     map[string]bool{},
	}
}

// Limit returns the row limit the next build should use.
func (c *Cursor) Limit() int {
	return c.limit
}

func (c *Cursor) HasMore() bool {
	return c.hasMore
}

// Advance grows the limit by one page. Call before re-building on LoadMore.
func (c *Cursor) Advance() {
	c.limit += c.pageSize
}

// MergeAppend records the freshly built rows against the rows already on
// screen: rows of items seen in a previous page are dropped, unseen rows are
// appended in their ranked order. The existing prefix is returned untouched.
func (c *Cursor) MergeAppend(existing []*model.FeedRow, fresh *BuildResult) []*model.FeedRow {
	c.hasMore = fresh.HasMore

	merged := existing
	for _, row := range fresh.Rows {
		if c.seen[row.Item.Id] {
			continue
		}
		merged = append(merged, row)
	}
	for _, row := range merged {
		c.seen[row.Item.Id] = true
	}
	return merged
}

// Reset starts the cursor over for a full reload.
func (c *Cursor) Reset() {
	c.limit = c.pageSize
	c.hasMore = true
	c.seen = map[string]bool{}
}
