package analyzer

import (
	"slices"
	"strings"

	"duplicalis/internal/models"
	"duplicalis/internal/parser"
	"duplicalis/internal/representation"
	"duplicalis/internal/utils"
)

// Suppression reasons, in the order they are checked.
const (
	ReasonOverMax               = "over-max-threshold"
	ReasonComposition           = "component-composition"
	ReasonNearPath              = "near-path"
	ReasonWrapperDifferentBase  = "wrapper-different-base"
	ReasonWrapperSpecialization = "wrapper-specialization"
	ReasonLowSignal             = "low-signal-pair"
	ReasonCompareFilter         = "compare-filter"
)

// A component is sparse when its body is this short and it carries almost
// nothing beyond a few props and literals.
const (
	LowSignalMaxLines    = 8
	LowSignalMaxLiterals = 8
)

// suppressionReason returns the first rule that removes the pair, or "".
func suppressionReason(a, b *models.Component, sim float64, opts Options) string {
	switch {
	case opts.MaxSimilarityThreshold != nil && sim > *opts.MaxSimilarityThreshold:
		return ReasonOverMax
	case IsComposition(a, b):
		return ReasonComposition
	case opts.MinPathDistance > 0 && utils.DirDistance(a.FilePath, b.FilePath) < opts.MinPathDistance:
		return ReasonNearPath
	case IsWrapperDifferentBase(a, b):
		return ReasonWrapperDifferentBase
	case IsWrapperSpecialization(a, b):
		return ReasonWrapperSpecialization
	case IsLowSignal(a) && IsLowSignal(b):
		return ReasonLowSignal
	case len(opts.CompareGlobs) > 0 && a.IsCompareTarget == b.IsCompareTarget:
		return ReasonCompareFilter
	}
	return ""
}

// IsComposition reports whether either component renders or references the other.
func IsComposition(a, b *models.Component) bool {
	return slices.Contains(a.ComponentRefs, b.Name) || slices.Contains(b.ComponentRefs, a.Name)
}

// IsWrapperDifferentBase reports two wrappers that each pin exactly one,
// different, base component.
func IsWrapperDifferentBase(a, b *models.Component) bool {
	if !a.IsWrapper || !b.IsWrapper {
		return false
	}
	ra := representation.Unique(a.ComponentRefs)
	rb := representation.Unique(b.ComponentRefs)
	return len(ra) == 1 && len(rb) == 1 && ra[0] != rb[0]
}

// IsWrapperSpecialization reports two wrappers over the same base that share
// their shape and can only differ in literal values.
func IsWrapperSpecialization(a, b *models.Component) bool {
	if !a.IsWrapper || !b.IsWrapper {
		return false
	}
	baseA, okA := wrapperBase(a)
	baseB, okB := wrapperBase(b)
	return okA && okB && baseA == baseB && sameShape(a, b)
}

// IsLowSignal reports whether a component is too small to trust a score:
// a short body with no hooks, logic, text or class names, few literals, and
// nothing but props to go on.
func IsLowSignal(c *models.Component) bool {
	if parser.CountNonBlankLines(c.Source) > LowSignalMaxLines {
		return false
	}
	if len(c.Hooks)+len(c.LogicTokens)+len(c.TextNodes)+len(c.ClassNames) > 0 {
		return false
	}
	if len(c.Literals) > LowSignalMaxLiterals {
		return false
	}
	return len(c.Props.Names) > 0 || c.Props.Spreads > 0
}

// wrapperBase is the single component a wrapper renders, or its element
// tags when it references no component.
func wrapperBase(c *models.Component) (string, bool) {
	refs := representation.Unique(c.ComponentRefs)
	switch len(refs) {
	case 1:
		return refs[0], true
	case 0:
		tags := representation.Unique(c.JSXTags)
		if len(tags) == 0 {
			return "", false
		}
		slices.Sort(tags)
		return "<" + strings.Join(tags, ",") + ">", true
	}
	return "", false
}

func sameShape(a, b *models.Component) bool {
	return a.Props.Spreads == b.Props.Spreads &&
		sameSet(a.Props.Names, b.Props.Names) &&
		sameSet(a.JSXTags, b.JSXTags) &&
		sameSet(a.Hooks, b.Hooks) &&
		sameSet(a.LogicTokens, b.LogicTokens)
}

func sameSet(a, b []string) bool {
	ua := representation.Unique(a)
	ub := representation.Unique(b)
	if len(ua) != len(ub) {
		return false
	}
	slices.Sort(ua)
	slices.Sort(ub)
	return slices.Equal(ua, ub)
}
