package formalism

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Atom is a predicate applied to a tuple of object ids. Atoms are interned:
// the id is stable and unique within the atom's tag.
type Atom struct {
	ID        int
	Predicate *Predicate
	Objects   []int
}

// Tag returns the tag of the atom's predicate.
func (a *Atom) Tag() Tag {
	return a.Predicate.Tag
}

// Format renders the atom with object names resolved through objects.
func (a *Atom) Format(objects []*Object) string {
	var builder strings.Builder
	builder.WriteString("(")
	builder.WriteString(a.Predicate.Name)
	for _, id := range a.Objects {
		builder.WriteString(" ")
		if id >= 0 && id < len(objects) {
			builder.WriteString(objects[id].Name)
		} else {
			fmt.Fprintf(&builder, "#%d", id)
		}
	}
	builder.WriteString(")")
	return builder.String()
}

func (a *Atom) String() string {
	return fmt.Sprintf("%s%v", a.Predicate.Name, a.Objects)
}

// tupleKey encodes a head id followed by a tuple of ids as a compact map key.
func tupleKey(head int, ids []int) string {
	buf := make([]byte, 0, (len(ids)+1)*2)
	buf = binary.AppendUvarint(buf, uint64(head))
	for _, id := range ids {
		buf = binary.AppendUvarint(buf, uint64(id))
	}
	return string(buf)
}

// AtomTable interns atoms of a single tag and assigns dense ids in creation
// order.
//
// Thread safety: not safe for concurrent mutation. Generators intern atoms
// only from the single search goroutine or from the sequential merge step of
// offline grounding.
type AtomTable struct {
	tag   Tag
	atoms []*Atom
	index map[string]int
}

// NewAtomTable creates an empty table for the given tag.
func NewAtomTable(tag Tag) *AtomTable {
	return &AtomTable{
		tag:   tag,
		index: make(map[string]int),
	}
}

// Tag returns the tag of the atoms stored in the table.
func (t *AtomTable) Tag() Tag {
	return t.tag
}

func (t *AtomTable) check(pred *Predicate, objects []int) {
	if pred.Tag != t.tag {
		panic(fmt.Sprintf("formalism: %s predicate %q interned in %s atom table", pred.Tag, pred.Name, t.tag))
	}
	if len(objects) != pred.Arity {
		panic(fmt.Sprintf("formalism: predicate %q has arity %d, got %d objects", pred.Name, pred.Arity, len(objects)))
	}
}

// Intern returns the unique atom for pred applied to objects, creating it if
// necessary. The objects slice is copied.
func (t *AtomTable) Intern(pred *Predicate, objects []int) *Atom {
	t.check(pred, objects)
	key := tupleKey(pred.ID, objects)
	if id, ok := t.index[key]; ok {
		return t.atoms[id]
	}
	atom := &Atom{
		ID:        len(t.atoms),
		Predicate: pred,
		Objects:   append([]int(nil), objects...),
	}
	t.atoms = append(t.atoms, atom)
	t.index[key] = atom.ID
	return atom
}

// Lookup returns the atom for pred applied to objects without creating it.
func (t *AtomTable) Lookup(pred *Predicate, objects []int) (*Atom, bool) {
	t.check(pred, objects)
	id, ok := t.index[tupleKey(pred.ID, objects)]
	if !ok {
		return nil, false
	}
	return t.atoms[id], true
}

// Get returns the atom with the given id. Panics on unknown ids.
func (t *AtomTable) Get(id int) *Atom {
	if id < 0 || id >= len(t.atoms) {
		panic(fmt.Sprintf("formalism: unknown %s atom id %d (have %d)", t.tag, id, len(t.atoms)))
	}
	return t.atoms[id]
}

// Len returns the number of interned atoms.
func (t *AtomTable) Len() int {
	return len(t.atoms)
}

// Atoms returns the interned atoms in id order. The slice must not be
// modified.
func (t *AtomTable) Atoms() []*Atom {
	return t.atoms
}
