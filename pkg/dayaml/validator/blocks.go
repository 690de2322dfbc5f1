package validator

// BlockTypeRule describes one kind of block an interview document can be.
type BlockTypeRule struct {
	Name         string
	Exclusive    bool     // cannot share a document with another exclusive type
	AllowedAttrs []string // informational; not enforced
	Partners     []string // exclusive types allowed to follow this one
}

// IsPartner reports whether name may share a document with this block type.
func (r BlockTypeRule) IsPartner(name string) bool {
	for _, p := range r.Partners {
		if p == name {
			return true
		}
	}
	return false
}

// BlockTypes is ordered by priority. The order decides which type of a pair
// is "first" when checking partners.
var BlockTypes = []BlockTypeRule{
	{Name: "include", Exclusive: true, AllowedAttrs: []string{"include"}},
	{Name: "features", Exclusive: true, AllowedAttrs: []string{"features"}},
	{Name: "objects", Exclusive: true, AllowedAttrs: []string{"objects"}},
	{Name: "objects from file", Exclusive: true, AllowedAttrs: []string{"objects from file", "use objects"}},
	{Name: "sections", Exclusive: true, AllowedAttrs: []string{"sections"}},
	{Name: "imports", Exclusive: true, AllowedAttrs: []string{"imports"}},
	{Name: "order", Exclusive: true, AllowedAttrs: []string{"order"}},
	{Name: "attachment", Exclusive: true, Partners: []string{"question"}},
	{Name: "attachments", Exclusive: true, Partners: []string{"question"}},
	{
		Name:         "template",
		Exclusive:    true,
		AllowedAttrs: []string{"template", "content", "language", "subject", "generic object", "content file", "reconsider"},
		Partners:     []string{"terms"},
	},
	{Name: "table", Exclusive: true, AllowedAttrs: []string{"sort key", "filter"}},
	{Name: "translations", Exclusive: true},
	{Name: "modules", Exclusive: true},
	{Name: "mako", Exclusive: true},
	{Name: "auto terms", Exclusive: true, Partners: []string{"question"}},
	{Name: "terms", Exclusive: true, Partners: []string{"question", "template"}},
	{Name: "variable name", Exclusive: true, AllowedAttrs: []string{"gathered", "data"}},
	{Name: "default language", Exclusive: true},
	{Name: "default validation messages", Exclusive: true},
	{Name: "reset", Exclusive: true},
	{Name: "on change", Exclusive: true},
	{Name: "images", Exclusive: true},
	{Name: "image sets", Exclusive: true},
	{Name: "default screen parts", Exclusive: true, AllowedAttrs: []string{"default screen parts"}},
	{Name: "metadata", Exclusive: true},
	{Name: "question", Exclusive: true, Partners: []string{"auto terms", "terms", "attachment", "attachments"}},
	{Name: "response", Exclusive: true, AllowedAttrs: []string{"event", "mandatory"}},
	{Name: "code", Exclusive: true},
	{Name: "comment", Exclusive: false},
	{Name: "interview help", Exclusive: true},
	{Name: "machine learning storage", Exclusive: true},
}

// blockRule returns the rule for a block type name.
func blockRule(name string) (BlockTypeRule, bool) {
	for _, r := range BlockTypes {
		if r.Name == name {
			return r, true
		}
	}
	return BlockTypeRule{}, false
}
