package models

// Fragment is a collectible scrap of narrative.
type Fragment struct {
	ID     string `yaml:"id" json:"id"`
	Title  string `yaml:"title" json:"title"`
	Body   string `yaml:"body" json:"body"`
	Origin string `yaml:"origin" json:"origin"`
	Icon   string `yaml:"icon" json:"icon"`
}

// Recipe combines a full set of fragments into a book.
type Recipe struct {
	BookID            string   `yaml:"book_id" json:"bookId"`
	Title             string   `yaml:"title" json:"title"`
	Cover             string   `yaml:"cover" json:"cover"`
	RequiredFragments []string `yaml:"required_fragments" json:"requiredFragments"`
	Body              string   `yaml:"body" json:"body"`
}

// Milestone unlocks FragmentID once the total word count reaches Threshold.
type Milestone struct {
	Threshold  int    `yaml:"threshold" json:"threshold"`
	FragmentID string `yaml:"fragment_id" json:"fragmentId"`
}

// Line is one line of a dialogue script. Effect is an optional
// presentation hint such as "shake".
type Line struct {
	Speaker string `yaml:"speaker" json:"speaker"`
	Text    string `yaml:"text" json:"text"`
	Effect  string `yaml:"effect,omitempty" json:"effect,omitempty"`
}

// DayEvent starts ScriptID once the day counter reaches Day, unless BookID
// is already on the shelf.
type DayEvent struct {
	Day        int    `yaml:"day" json:"day"`
	BookID     string `yaml:"book_id" json:"bookId"`
	SystemBook int    `yaml:"system_book" json:"systemBook"`
	ScriptID   string `yaml:"script" json:"script"`
	Log        string `yaml:"log" json:"log"`
}

// GuideBook is a system book delivered by the story rather than synthesis.
type GuideBook struct {
	Number  int    `yaml:"number" json:"number"`
	ID      string `yaml:"id" json:"id"`
	Title   string `yaml:"title" json:"title"`
	Cover   string `yaml:"cover" json:"cover"`
	Content string `yaml:"content" json:"content"`
}
