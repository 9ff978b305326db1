package types

// Layout computes byte sizes the way the IR emitter lays types out:
// natural alignment, BOOL stored in one byte, VLAs as fat pointers.
type Layout struct {
	Find Lookup
}

// SizeOf returns the size of t in bytes.
func (l Layout) SizeOf(t *Info) int64 {
	size, _ := l.measure(t, 0)
	return size
}

// AlignOf returns the alignment of t in bytes.
func (l Layout) AlignOf(t *Info) int64 {
	_, align := l.measure(t, 0)
	return align
}

func (l Layout) measure(t *Info, depth int) (size, align int64) {
	if t == nil || depth > 64 {
		return 0, 1
	}
	switch t.Kind {
	case KindVoid, KindPlaceholder, KindGeneric:
		return 0, 1
	case KindBool:
		return 1, 1
	case KindInteger, KindFloat, KindEnum, KindSubRange:
		b := int64(t.Bits+7) / 8
		if b == 0 {
			b = 4
		}
		return b, b
	case KindPointer:
		return 8, 8
	case KindString:
		unit := t.Encoding.Bytes()
		return t.Size * unit, unit
	case KindAlias:
		return l.measure(l.Find(t.Inner), depth+1)
	case KindArray:
		es, ea := l.measure(l.Find(t.Inner), depth+1)
		return es * t.Elements(), ea
	case KindVarLengthArray:
		return 8 + 8*int64(t.Rank), 8
	case KindStruct:
		var off, maxAlign int64 = 0, 1
		for _, f := range t.Fields {
			fs, fa := l.measure(l.Find(f.Type), depth+1)
			off = alignUp(off, fa)
			off += fs
			maxAlign = max(maxAlign, fa)
		}
		return alignUp(off, maxAlign), maxAlign
	}
	return 0, 1
}

func alignUp(n, a int64) int64 {
	if a <= 1 {
		return n
	}
	return (n + a - 1) / a * a
}
