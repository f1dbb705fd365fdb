package store

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"dxf-normalizer/internal/normalizer/models"
)

// ============================================================
// Document
// ============================================================

// Document is an editable drawing. Entities keep their file order; new
// entities are appended. Handles are unique within a document.
type Document struct {
	sections []models.Section
	entities []models.Entity
	removed  []bool // deleted slots, dropped by compact
	index    map[models.Handle]int
	live     int
	next     uint64

	// Warnings collects problems found while loading that did not stop it.
	Warnings []error
}

// NewDocument takes ownership of the drawing. Entities without a handle,
// or repeating one already seen, get a fresh handle above every handle
// the drawing uses.
func NewDocument(d *models.Drawing) *Document {
	doc := &Document{
		sections: d.Sections,
		index:    make(map[models.Handle]int, len(d.Entities)),
		next:     1,
	}

	// $HANDSEED is the next free handle, not a used one.
	if seed, err := strconv.ParseUint(headerSeed(d.Sections), 16, 64); err == nil && seed > doc.next {
		doc.next = seed
	}
	for _, s := range d.Sections {
		if s.Name == "HEADER" {
			continue
		}
		for _, t := range s.Tags {
			if t.Code == 5 || t.Code == 105 {
				doc.bump(t.Value)
			}
		}
	}
	for _, e := range d.Entities {
		doc.bump(string(e.Handle))
	}

	for _, e := range d.Entities {
		if _, dup := doc.index[e.Handle]; e.Handle == "" || dup {
			e.Handle = doc.NewHandle()
		}
		doc.insert(e)
	}
	return doc
}

// bump moves the allocator past a hex handle. Anything else is ignored.
func (d *Document) bump(h string) {
	v, err := strconv.ParseUint(h, 16, 64)
	if err != nil {
		return
	}
	if v >= d.next {
		d.next = v + 1
	}
}

func headerSeed(sections []models.Section) string {
	for _, s := range sections {
		if s.Name != "HEADER" {
			continue
		}
		for i, t := range s.Tags {
			if t.Code == 9 && t.Value == "$HANDSEED" && i+1 < len(s.Tags) {
				return s.Tags[i+1].Value
			}
		}
	}
	return ""
}

// NewHandle reserves a handle no entity in the document uses.
func (d *Document) NewHandle() models.Handle {
	h := models.Handle(strings.ToUpper(strconv.FormatUint(d.next, 16)))
	d.next++
	return h
}

// HandleSeed returns the next handle that would be allocated.
func (d *Document) HandleSeed() models.Handle {
	return models.Handle(strings.ToUpper(strconv.FormatUint(d.next, 16)))
}

// ReadAll returns a snapshot of the entities in document order.
func (d *Document) ReadAll() []models.Entity {
	d.compact()
	return slices.Clone(d.entities)
}

func (d *Document) Get(h models.Handle) (models.Entity, bool) {
	i, ok := d.index[h]
	if !ok {
		return models.Entity{}, false
	}
	return d.entities[i], true
}

func (d *Document) Len() int {
	return d.live
}

// Add appends e and returns its handle. An empty or taken handle is
// replaced with a fresh one.
func (d *Document) Add(e models.Entity) models.Handle {
	if _, dup := d.index[e.Handle]; e.Handle == "" || dup {
		e.Handle = d.NewHandle()
	} else {
		d.bump(string(e.Handle))
	}
	d.insert(e)
	return e.Handle
}

func (d *Document) insert(e models.Entity) {
	d.index[e.Handle] = len(d.entities)
	d.entities = append(d.entities, e)
	d.removed = append(d.removed, false)
	d.live++
}

// Delete removes the entity with handle h.
func (d *Document) Delete(h models.Handle) error {
	i, ok := d.index[h]
	if !ok {
		return fmt.Errorf("no entity with handle %s", h)
	}
	d.removed[i] = true
	delete(d.index, h)
	d.live--
	return nil
}

// compact drops deleted slots and reindexes what is left.
func (d *Document) compact() {
	if d.live == len(d.entities) {
		return
	}
	kept := d.entities[:0]
	for i, e := range d.entities {
		if d.removed[i] {
			continue
		}
		d.index[e.Handle] = len(kept)
		kept = append(kept, e)
	}
	clear(d.entities[len(kept):])
	d.entities = kept
	d.removed = make([]bool, len(kept))
}

// Drawing returns the document in a form the writers accept.
func (d *Document) Drawing() *models.Drawing {
	return &models.Drawing{Sections: d.sections, Entities: d.ReadAll()}
}
