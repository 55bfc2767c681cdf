package analyzer

import (
	"fmt"
	"slices"
	"strings"

	"duplicalis/internal/models"
	"duplicalis/internal/representation"
	"duplicalis/internal/utils"
)

// Labels attached to reported pairs.
const (
	LabelStyleDuplicate   = "style-duplicate"
	LabelLogicDuplicate   = "logic-duplicate"
	LabelCopyPasteVariant = "copy-paste-variant"
	LabelWrapperDuplicate = "wrapper-duplicate"
)

const (
	styleDuplicateMin = 0.9
	logicOverlapMin   = 0.75
	logicMinTokens    = 2
	copyPasteHolistic = 0.95
)

// label computes the labels and hints of a retained pair.
func label(a, b *models.EmbeddingEntry, disabled []string) ([]string, []string) {
	labels := []string{}
	hints := []string{}
	add := func(name, hint string) {
		if slices.Contains(disabled, name) {
			return
		}
		labels = append(labels, name)
		hints = append(hints, hint)
	}

	ca, cb := a.Component, b.Component

	if a.HasStyles && b.HasStyles {
		if sim := utils.CosineSim(a.StyleVec, b.StyleVec); sim >= styleDuplicateMin {
			add(LabelStyleDuplicate, fmt.Sprintf("style rules match (%.2f)", sim))
		}
	}

	if shared, overlap, union := logicOverlap(ca, cb); union >= logicMinTokens && overlap >= logicOverlapMin {
		add(LabelLogicDuplicate, "same hooks and logic: "+strings.Join(shared, ", "))
	}

	if utils.CosineSim(a.HolisticVec, b.HolisticVec) >= copyPasteHolistic && sameShape(ca, cb) && !sameSet(ca.Literals, cb.Literals) {
		add(LabelCopyPasteVariant, "same structure, only literal values differ")
	}

	if ca.IsWrapper && cb.IsWrapper {
		baseA, okA := wrapperBase(ca)
		baseB, okB := wrapperBase(cb)
		if okA && okB && baseA == baseB {
			add(LabelWrapperDuplicate, "both wrap "+baseA)
		}
	}

	return labels, hints
}

// logicOverlap is the Jaccard overlap of hooks and logic tokens.
func logicOverlap(a, b *models.Component) ([]string, float64, int) {
	sa := representation.Unique(append(append([]string{}, a.Hooks...), a.LogicTokens...))
	sb := representation.Unique(append(append([]string{}, b.Hooks...), b.LogicTokens...))

	inB := make(map[string]bool, len(sb))
	for _, t := range sb {
		inB[t] = true
	}
	var shared []string
	for _, t := range sa {
		if inB[t] {
			shared = append(shared, t)
		}
	}
	union := len(sa) + len(sb) - len(shared)
	if union == 0 {
		return nil, 0, 0
	}
	return shared, float64(len(shared)) / float64(union), union
}
