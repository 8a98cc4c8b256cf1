package crawler

// PageMap represents the analyzed state of the page at failure time
type PageMap struct {
	URL      string    `json:"url"`
	Title    string    `json:"title"`
	Controls []Control `json:"controls"`
}

// Control represents a visible interactive element on the page
type Control struct {
	Tag      string `json:"tag"`
	ID       string `json:"id,omitempty"`
	Classes  string `json:"classes,omitempty"`
	Name     string `json:"name,omitempty"`
	Type     string `json:"type,omitempty"`
	Text     string `json:"text,omitempty"`
	Title    string `json:"title,omitempty"`
	Selector string `json:"selector"`
}
