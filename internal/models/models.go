package models

// Props describes the first parameter of a component function.
type Props struct {
	Names   []string `json:"names"`
	Spreads int      `json:"spreads"`
}

// Loc is the 1-indexed line span of a component declaration.
type Loc struct {
	StartLine int `json:"startLine"`
	EndLine   int `json:"endLine"`
}

// Component is one analyzed UI declaration plus its structural metadata.
// It is built once per run by the parser and only IsCompareTarget is set
// afterwards.
type Component struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	FilePath        string   `json:"filePath"`
	Source          string   `json:"source"`
	Loc             Loc      `json:"loc"`
	Props           Props    `json:"props"`
	Hooks           []string `json:"hooks"`
	LogicTokens     []string `json:"logicTokens"`
	Literals        []string `json:"literals"`
	JSXTags         []string `json:"jsxTags"`
	JSXPaths        []string `json:"jsxPaths"`
	TextNodes       []string `json:"textNodes"`
	ClassNames      []string `json:"classNames"`
	ComponentRefs   []string `json:"componentRefs"`
	ReturnsCount    int      `json:"returnsCount"`
	StyleImports    []string `json:"styleImports"`
	IsWrapper       bool     `json:"isWrapper"`
	IsCompareTarget bool     `json:"isCompareTarget,omitempty"`
}

// FileResult is the analyzer output for a single source file.
type FileResult struct {
	Components  []Component
	IgnoredFile bool
}

// StyleBundle is the per-run style signal of a component. It is never persisted.
type StyleBundle struct {
	StyleText  string
	StylePaths []string
	HasCSSInJS bool
	// ClassNames are the deduplicated class names the component applies,
	// including CSS module references.
	ClassNames []string
}

// Representation holds the four normalized texts used as embedding input.
type Representation struct {
	CodeRep      string `json:"codeRep"`
	StyleRep     string `json:"styleRep"`
	StructureRep string `json:"structureRep"`
	HolisticRep  string `json:"holisticRep"`
}

// EmbeddingEntry is the working-set record for one component, rebuilt every run.
type EmbeddingEntry struct {
	Component    *Component
	CodeVec      []float64
	StyleVec     []float64
	StructureVec []float64
	HolisticVec  []float64
	Vector       []float64
	HasStyles    bool
}

// Pair categories.
const (
	CategoryAlmostIdentical = "almost-identical"
	CategoryNearDuplicate   = "near-duplicate"
)

// SimilarityPair is an unordered pair of components reported as duplicates.
type SimilarityPair struct {
	A          string   `json:"a"`
	B          string   `json:"b"`
	Similarity float64  `json:"similarity"`
	Category   string   `json:"category"`
	Labels     []string `json:"labels"`
	Hints      []string `json:"hints"`
}

// Scorecard aggregates statistics about one similarity run.
type Scorecard struct {
	EvaluatedPairs     int            `json:"evaluatedPairs"`
	CoveredComponents  int            `json:"coveredComponents"`
	MeanSimilarity     float64        `json:"meanSimilarity"`
	MaxSimilarity      float64        `json:"maxSimilarity"`
	MinBestSimilarity  float64        `json:"minBestSimilarity"`
	MaxBestSimilarity  float64        `json:"maxBestSimilarity"`
	SuppressedPairs    int            `json:"suppressedPairs"`
	SuppressionReasons map[string]int `json:"suppressionReasons"`
}

// CacheStats reports how the embedding cache was used during a run.
type CacheStats struct {
	Hits    int `json:"hits"`
	Partial int `json:"partial"`
	Misses  int `json:"misses"`
	Fetched int `json:"fetched"`
	Pruned  int `json:"pruned"`
	Entries int `json:"entries"`
}

// Stats carries timings and aggregate counters for the report.
type Stats struct {
	Files        int        `json:"files"`
	IgnoredFiles int        `json:"ignoredFiles"`
	ScanMs       int64      `json:"scanMs"`
	ParseMs      int64      `json:"parseMs"`
	EmbedMs      int64      `json:"embedMs"`
	SimilarityMs int64      `json:"similarityMs"`
	Cache        CacheStats `json:"cache"`
	Scorecard    Scorecard  `json:"scorecard"`
}

// Report is the single in-memory result handed to renderers.
type Report struct {
	Components []Component      `json:"components"`
	Pairs      []SimilarityPair `json:"pairs"`
	Stats      Stats            `json:"stats"`
}
