package entity

import "slices"

// Kind is an entity variant. Its value is also the node label.
type Kind string

const (
	KindCompany    Kind = "Company"
	KindJournalist Kind = "Journalist"
	KindMedia      Kind = "Media"
	KindMedialist  Kind = "Medialist"
)

// Schema describes the stored shape of one entity kind
type Schema struct {
	Kind     Kind
	Required []string
	Optional []string

	// DateFields hold calendar dates, given as "2006-01-02"
	DateFields []string
	// DateTimeFields hold instants, given as RFC 3339 or a bare date
	DateTimeFields []string

	// NameFields are joined with a space to form the fuzzy-searchable name
	NameFields []string

	// CreatedField, when set, is stamped with the current time on create
	CreatedField string
}

// Label returns the node label of the kind
func (s Schema) Label() string {
	return string(s.Kind)
}

var personFields = []string{"birthdate", "description", "email", "phone", "title"}

// Schemas is the schema table for every entity kind
var Schemas = map[Kind]Schema{
	KindCompany: {
		Kind:     KindCompany,
		Required: []string{"name"},
		Optional: []string{
			"description", "website", "size_min", "size_max",
			"headquarters", "email", "contact_num", "founding_date",
		},
		DateFields: []string{"founding_date"},
		NameFields: []string{"name"},
	},
	KindJournalist: {
		Kind:       KindJournalist,
		Required:   []string{"first_name", "last_name"},
		Optional:   personFields,
		DateFields: []string{"birthdate"},
		NameFields: []string{"first_name", "last_name"},
	},
	KindMedia: {
		Kind:       KindMedia,
		Required:   []string{"first_name", "last_name"},
		Optional:   personFields,
		DateFields: []string{"birthdate"},
		NameFields: []string{"first_name", "last_name"},
	},
	KindMedialist: {
		Kind:           KindMedialist,
		Required:       []string{"name"},
		Optional:       []string{"description"},
		DateTimeFields: []string{"creation_datetime"},
		NameFields:     []string{"name"},
		CreatedField:   "creation_datetime",
	},
}

// Kinds returns every kind in a fixed order
func Kinds() []Kind {
	return []Kind{KindCompany, KindJournalist, KindMedia, KindMedialist}
}

// Labels returns the node label of every kind
func Labels() []string {
	kinds := Kinds()
	labels := make([]string, len(kinds))
	for i, k := range kinds {
		labels[i] = string(k)
	}
	return labels
}

// PersonKinds are the kinds that can hold employment, notes and list membership
var PersonKinds = []Kind{KindJournalist, KindMedia}

// KindFromLabels returns the entity kind among a node's labels
func KindFromLabels(labels []string) (Kind, bool) {
	for _, l := range labels {
		if _, ok := Schemas[Kind(l)]; ok {
			return Kind(l), true
		}
	}
	return "", false
}

func (s Schema) isDate(field string) bool {
	return slices.Contains(s.DateFields, field)
}

func (s Schema) isDateTime(field string) bool {
	return slices.Contains(s.DateTimeFields, field)
}

func (s Schema) isRequired(field string) bool {
	return slices.Contains(s.Required, field)
}
