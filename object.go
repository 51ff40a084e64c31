package packjson

import "fmt"

// Object entry tags, written as VLQ:
//
//	0                   end of entry list
//	idx<<1 | 1          reference to definition idx of this slot
//	packedKind<<2 | 2   definition: key string follows in the reference sequence
//
// A slot is the position of an entry within its object. Definitions are
// scoped to their slot, so objects of the same shape resolve every entry to
// a one-byte reference after the first instance.
const entryEnd = 0

type slotKey struct {
	key  int // first-seen string id
	kind uint8
}

// slotTable is the encoder's per-slot definition index.
type slotTable struct {
	slots []map[slotKey]int
}

func (t *slotTable) find(slot, key int, kind uint8) (int, bool) {
	if slot >= len(t.slots) {
		return 0, false
	}
	idx, ok := t.slots[slot][slotKey{key, kind}]
	return idx, ok
}

func (t *slotTable) define(slot, key int, kind uint8) {
	for len(t.slots) <= slot {
		t.slots = append(t.slots, make(map[slotKey]int))
	}
	m := t.slots[slot]
	m[slotKey{key, kind}] = len(m)
}

// writeEntries writes an object's members as an entry list. Undefined
// members are omitted.
func (e *encoder) writeEntries(members []Member) {
	slot := 0
	for _, m := range members {
		tag, nt := tagOf(m.Value)
		if tag == tagUndefined {
			continue
		}
		pk := packKind(tag, nt)
		if id, ok := e.strs.lookup(m.Key); ok {
			if idx, ok := e.slots.find(slot, id, pk); ok {
				e.out.WriteVLQ(uint64(idx)<<1 | 1)
				e.writeValue(pk, m.Value)
				slot++
				continue
			}
		}
		e.out.WriteVLQ(uint64(pk)<<2 | 2)
		e.slots.define(slot, e.strs.ref(m.Key), pk)
		e.writeValue(pk, m.Value)
		slot++
	}
	e.out.WriteVLQ(entryEnd)
}

type slotDef struct {
	key  string
	kind uint8
}

// readEntries reads one entry list written by writeEntries.
func (d *decoder) readEntries() []Member {
	var members []Member
	for slot := 0; ; slot++ {
		tag := d.c.ReadVLQ()
		d.check()
		if tag == entryEnd {
			return members
		}
		for len(d.slots) <= slot {
			d.slots = append(d.slots, nil)
		}
		var def slotDef
		switch {
		case tag&1 == 1:
			idx := tag >> 1
			if idx >= uint64(len(d.slots[slot])) {
				d.fail(fmt.Errorf("%w: slot %d definition %d of %d", ErrBadReference, slot, idx, len(d.slots[slot])))
			}
			def = d.slots[slot][idx]
		case tag&0b11 == 2:
			if tag>>2 > 0xFF {
				d.fail(fmt.Errorf("%w: entry kind %d", ErrBadTag, tag>>2))
			}
			def = slotDef{key: d.nextString(), kind: uint8(tag >> 2)}
			d.slots[slot] = append(d.slots[slot], def)
		default:
			d.fail(fmt.Errorf("%w: entry tag %#x", ErrBadTag, tag))
		}
		members = append(members, Member{Key: def.key, Value: d.readValue(def.kind)})
	}
}
