package vo

// DocType selects one of the two documentation trees.
type DocType string

const (
	DocTypeDoc   DocType = "Doc"
	DocTypeGuide DocType = "Guide"
)

// DocTypes returns every known documentation type in a stable order.
func DocTypes() []DocType {
	return []DocType{DocTypeDoc, DocTypeGuide}
}

// ParseDocType maps a raw path segment to a DocType. Unknown values are rejected.
func ParseDocType(s string) (DocType, bool) {
	switch DocType(s) {
	case DocTypeDoc:
		return DocTypeDoc, true
	case DocTypeGuide:
		return DocTypeGuide, true
	default:
		return "", false
	}
}

func (t DocType) String() string {
	return string(t)
}

type Markdown string

// IndexItem is one documentation folder together with its page names.
type IndexItem struct {
	Category string   `json:"category"`
	Children []string `json:"children"`
}

// FolderItem carries display metadata for a category.
type FolderItem struct {
	Category string `json:"category"`
	Icon     string `json:"icon"`
	Name     string `json:"name"`
}

type RecommendedItem struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Anchor   string `json:"anchor"`
	Category string `json:"category"`
	Page     string `json:"page"`
	Time     string `json:"time"`
	Icon     string `json:"icon"`
}

// PlaceholderTitle marks a recommended item list that has no real entries.
const PlaceholderTitle = "None_Available"

// PlaceholderRecommendedItem is served in place of an empty recommended item list.
func PlaceholderRecommendedItem() RecommendedItem {
	return RecommendedItem{ID: 1, Title: PlaceholderTitle}
}

// RecommendedOrPlaceholder returns items, or a one element placeholder list when items is empty.
func RecommendedOrPlaceholder(items []RecommendedItem) []RecommendedItem {
	if len(items) == 0 {
		return []RecommendedItem{PlaceholderRecommendedItem()}
	}
	return items
}

// DocumentationFile wraps the raw HTML of a page.
type DocumentationFile struct {
	File string `json:"file"`
}

// DefaultFile is the page shown when a category is opened without a page name.
type DefaultFile struct {
	Name string `json:"name"`
	File string `json:"file"`
}

type PageSummary struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords,omitempty"`
}

type Page struct {
	Summary  PageSummary `json:"summary"`
	Markdown Markdown    `json:"markdown"`
}

// Refresh bundles both indices and both recommended item lists.
type Refresh struct {
	Index                 []IndexItem       `json:"index"`
	GuideIndex            []IndexItem       `json:"guideIndex"`
	RecommendedItems      []RecommendedItem `json:"recommendedItems"`
	GuideRecommendedItems []RecommendedItem `json:"guideRecommendedItems"`
}

// Badge is a shields.io endpoint payload.
type Badge struct {
	SchemaVersion int    `json:"schemaVersion"`
	Label         string `json:"label"`
	Message       string `json:"message"`
	Color         string `json:"color"`
}
