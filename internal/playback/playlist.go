package playback

import (
	"github.com/samber/lo"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/model"
)

// ActiveItems is the rotation: the active items of a full snapshot in their
// original order. It always allocates a fresh slice.
func ActiveItems(all []model.ContentItem) []model.ContentItem {
	return lo.Filter(all, func(item model.ContentItem, _ int) bool {
		return item.Active
	})
}

func indexOf(items []model.ContentItem, id string) int {
	_, idx, ok := lo.FindIndexOf(items, func(item model.ContentItem) bool {
		return item.ID == id
	})
	if !ok {
		return -1
	}
	return idx
}

// ClampStart returns the start index for a rotation of n items, 0 when the
// hint is absent or out of range.
func ClampStart(hint *int, n int) int {
	if hint == nil || *hint < 0 || *hint >= n {
		return 0
	}
	return *hint
}
