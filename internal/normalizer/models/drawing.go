package models

// Section is a DXF section other than ENTITIES, kept as raw tags between
// the section name and ENDSEC.
type Section struct {
	Name string
	Tags []Tag
}

// Drawing is a parsed document: its entities in file order plus whatever
// surrounding sections the source format carried.
type Drawing struct {
	// Sections are in file order. The ENTITIES section appears with no
	// tags and marks where entities are written back.
	Sections []Section
	Entities []Entity
}

const EntitiesSection = "ENTITIES"
