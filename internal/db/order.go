package db

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/model"
)

// spliceMove removes the element at from and reinserts it at to.
func spliceMove(ids []string, from, to int) ([]string, error) {
	if from < 0 || from >= len(ids) || to < 0 || to >= len(ids) {
		return nil, fmt.Errorf("%w: move %d -> %d out of range for %d items", model.ErrValidation, from, to, len(ids))
	}
	out := append([]string(nil), ids...)
	moved := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out[:to], append([]string{moved}, out[to:]...)...)
	return out, nil
}

// checkPermutation verifies that ids names exactly the items in current.
func checkPermutation(current, ids []string) error {
	if len(ids) != len(current) {
		return fmt.Errorf("%w: reorder lists %d ids, collection has %d", model.ErrValidation, len(ids), len(current))
	}
	if dup := lo.FindDuplicates(ids); len(dup) > 0 {
		return fmt.Errorf("%w: duplicate ids %v", model.ErrValidation, dup)
	}
	if missing, _ := lo.Difference(current, ids); len(missing) > 0 {
		return fmt.Errorf("%w: reorder is missing ids %v", model.ErrValidation, missing)
	}
	return nil
}

func prepareDraft(d model.ContentDraft) (model.ContentDraft, error) {
	d.Normalize()
	if err := d.Validate(); err != nil {
		return d, err
	}
	return d, nil
}
