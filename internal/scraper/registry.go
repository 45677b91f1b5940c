package scraper

import "fmt"

// Field names of a Ceneo review record.
const (
	FieldOpinionID      = "opinion_id"
	FieldAuthor         = "author"
	FieldRecommendation = "recommendation"
	FieldStars          = "stars"
	FieldContent        = "content"
	FieldPros           = "pros"
	FieldCons           = "cons"
	FieldUseful         = "useful"
	FieldUnuseful       = "unuseful"
	FieldPostDate       = "post_date"
	FieldPurchaseDate   = "purchase_date"
)

// FieldSpec describes how to pull one named value out of a node. An empty
// Selector means "read from the node itself"; an empty Attribute means
// "use the text content".
type FieldSpec struct {
	Name      string `yaml:"name"`
	Selector  string `yaml:"selector,omitempty"`
	Attribute string `yaml:"attribute,omitempty"`
	Multiple  bool   `yaml:"multiple,omitempty"`
}

func (f FieldSpec) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("field spec without a name")
	}
	if f.Selector == "" && f.Attribute == "" {
		return fmt.Errorf("field %s: selector or attribute is required", f.Name)
	}
	return nil
}

// Registry is an immutable, ordered set of FieldSpecs. Its order fixes the
// field order of every record built from it.
type Registry struct {
	specs []FieldSpec
	index map[string]int
}

func NewRegistry(specs ...FieldSpec) (*Registry, error) {
	r := &Registry{
		specs: make([]FieldSpec, 0, len(specs)),
		index: make(map[string]int, len(specs)),
	}
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.index[spec.Name]; dup {
			return nil, fmt.Errorf("duplicate field %s", spec.Name)
		}
		r.index[spec.Name] = len(r.specs)
		r.specs = append(r.specs, spec)
	}
	if len(r.specs) == 0 {
		return nil, fmt.Errorf("registry has no fields")
	}
	return r, nil
}

func mustRegistry(specs ...FieldSpec) *Registry {
	r, err := NewRegistry(specs...)
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultRegistry returns the review fields of the Ceneo product page.
func DefaultRegistry() *Registry {
	return mustRegistry(
		FieldSpec{Name: FieldOpinionID, Attribute: "data-entry-id"},
		FieldSpec{Name: FieldAuthor, Selector: "span.user-post__author-name"},
		FieldSpec{Name: FieldRecommendation, Selector: "span.user-post__author-recomendation > em"},
		FieldSpec{Name: FieldStars, Selector: "span.user-post__score-count"},
		FieldSpec{Name: FieldContent, Selector: "div.user-post__text"},
		FieldSpec{Name: FieldPros, Selector: "div.review-feature__item--positive", Multiple: true},
		FieldSpec{Name: FieldCons, Selector: "div.review-feature__item--negative", Multiple: true},
		FieldSpec{Name: FieldUseful, Selector: "button.vote-yes > span"},
		FieldSpec{Name: FieldUnuseful, Selector: "button.vote-no > span"},
		FieldSpec{Name: FieldPostDate, Selector: "span.user-post__published > time:nth-child(1)", Attribute: "datetime"},
		FieldSpec{Name: FieldPurchaseDate, Selector: "span.user-post__published > time:nth-child(2)", Attribute: "datetime"},
	)
}

// Specs returns a copy, so callers cannot mutate the registry.
func (r *Registry) Specs() []FieldSpec {
	out := make([]FieldSpec, len(r.specs))
	copy(out, r.specs)
	return out
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.specs))
	for i, spec := range r.specs {
		names[i] = spec.Name
	}
	return names
}

func (r *Registry) Lookup(name string) (FieldSpec, bool) {
	i, ok := r.index[name]
	if !ok {
		return FieldSpec{}, false
	}
	return r.specs[i], true
}

func (r *Registry) Len() int { return len(r.specs) }
