package packjson

// columnPlan is the columnizer's decision for the objects of one array.
type columnPlan struct {
	keys    []string // every key, in discovery order
	index   map[string]int
	columns []bool    // per key: hoisted into a column
	values  [][]Value // per key: one value per object, Undefined where absent
	present []int     // per key: objects holding the key
	types   []uint8   // per key: tag bitmap of the column, holes included
	inline  bool      // some object still has inline entries
	ordered bool      // every object lists its keys in discovery order
}

func (p *columnPlan) any() bool {
	for _, c := range p.columns {
		if c {
			return true
		}
	}
	return false
}

// planColumns decides, per key, whether the objects' values move into a
// parallel column. Keys are visited in discovery order and the cost of each
// decision depends on the ones before it:
//
//	column: 1 (key ref) + 1 (header ref) + ceil(bitsFor(column types) * objects / 8)
//	inline: present * (1 + 1 while no key is inline yet, for the terminators)
//
// A key whose column costs more than its inline entries stays inline.
// Objects are only columnized when each lists its keys in discovery order,
// since that order is what the decoder restores them by.
func planColumns(objs []Value) *columnPlan {
	p := &columnPlan{ordered: true, index: make(map[string]int)}
	index := p.index
	for i, o := range objs {
		last := -1
		for _, m := range o.mems {
			tag, _ := tagOf(m.Value)
			if tag == tagUndefined {
				continue
			}
			k, ok := index[m.Key]
			if !ok {
				k = len(p.keys)
				index[m.Key] = k
				p.keys = append(p.keys, m.Key)
				p.values = append(p.values, make([]Value, len(objs)))
				p.present = append(p.present, 0)
				p.types = append(p.types, 0)
			}
			if k < last {
				p.ordered = false
			}
			last = k
			p.values[k][i] = m.Value
			p.present[k]++
			p.types[k] |= 1 << tag
		}
	}

	p.columns = make([]bool, len(p.keys))
	if len(objs) < 2 || !p.ordered {
		p.inline = len(p.keys) > 0
		return p
	}
	inlineSoFar := false
	for k := range p.keys {
		types := p.types[k]
		if p.present[k] < len(objs) {
			types |= 1 << tagUndefined
		}
		columnCost := 2 + bitsLen(len(objs), bitsFor(popcount(types)))
		inlineCost := p.present[k] * (1 + b2i(!inlineSoFar))
		if columnCost > inlineCost {
			inlineSoFar = true
			continue
		}
		p.columns[k] = true
	}
	p.inline = inlineSoFar
	return p
}

// inlineMembers returns the members of o that are not in a column.
func (p *columnPlan) inlineMembers(o Value) []Member {
	out := make([]Member, 0, len(o.mems))
	for _, m := range o.mems {
		if k, ok := p.index[m.Key]; ok && p.columns[k] {
			continue
		}
		out = append(out, m)
	}
	return out
}
