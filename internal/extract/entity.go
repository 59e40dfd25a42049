package extract

// Category is an entity label from the tagger's allow-list.
type Category string

const (
	Person    Category = "PERSON"
	Org       Category = "ORG"
	GPE       Category = "GPE"
	Date      Category = "DATE"
	Event     Category = "EVENT"
	Loc       Category = "LOC"
	Money     Category = "MONEY"
	Product   Category = "PRODUCT"
	WorkOfArt Category = "WORK_OF_ART"
	Time      Category = "TIME"
)

var allowedCategories = map[Category]bool{
	Person: true, Org: true, GPE: true, Date: true, Event: true,
	Loc: true, Money: true, Product: true, WorkOfArt: true, Time: true,
}

// Allowed reports whether c is one of the quiz-worthy categories.
func (c Category) Allowed() bool {
	return allowedCategories[c]
}

// EntityMention is an accepted entity with the sentence it was found in.
// Sentence always contains Text.
type EntityMention struct {
	Text            string   `json:"text" yaml:"text"`
	Category        Category `json:"category" yaml:"category"`
	Sentence        string   `json:"sentence" yaml:"sentence"`
	SourceUnitIndex int      `json:"source_unit_index" yaml:"source_unit_index"`
}

// Key identifies an entity regardless of where it was mentioned.
type Key struct {
	Text     string
	Category Category
}

func (m EntityMention) Key() Key {
	return Key{Text: m.Text, Category: m.Category}
}

// Pool is the ordered list of mentions for one document, in discovery order.
type Pool []EntityMention

// DistinctKeys counts the distinct keys in the pool.
func (p Pool) DistinctKeys() int {
	seen := make(map[Key]struct{}, len(p))
	for _, m := range p {
		seen[m.Key()] = struct{}{}
	}
	return len(seen)
}
