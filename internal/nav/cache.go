package nav

import (
	"sync"

	"github.com/kode4food/vellum/pkg/api"
)

// visibilityCache memoizes question evaluation per run and section within
// one page load. Writes to step values do not propagate automatically:
// the writer must call InvalidateRun before the next read
type visibilityCache struct {
	mu   sync.RWMutex
	runs map[string]map[api.PageID]*api.QuestionVisibility
}

func newVisibilityCache() *visibilityCache {
	return &visibilityCache{
		runs: map[string]map[api.PageID]*api.QuestionVisibility{},
	}
}

func (c *visibilityCache) get(
	runID string, sectionID api.PageID,
) (*api.QuestionVisibility, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sections, ok := c.runs[runID]
	if !ok {
		return nil, false
	}
	vis, ok := sections[sectionID]
	return vis, ok
}

func (c *visibilityCache) put(
	runID string, sectionID api.PageID, vis *api.QuestionVisibility,
) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sections, ok := c.runs[runID]
	if !ok {
		sections = map[api.PageID]*api.QuestionVisibility{}
		c.runs[runID] = sections
	}
	sections[sectionID] = vis
}

func (c *visibilityCache) invalidateRun(runID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.runs, runID)
}
