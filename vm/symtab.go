package vm

import "github.com/dchest/siphash"

// symbolTableHashKey0/1 are fixed for the process lifetime: the symbol
// table is never persisted or compared across processes, so a stable
// per-process key (rather than a random one) is sufficient and keeps
// compiles of identical source byte-for-byte deterministic, which
// SPEC_FULL.md section 8's round-trip property requires.
const (
	symbolTableHashKey0 uint64 = 0x7368_6164_6572_7666 // "shadervf"
	symbolTableHashKey1 uint64 = 0x766d_6272_6379_636c // "vmbrcycl"
)

// SymbolTable interns identifier strings into a contiguous byte pool and
// returns a stable index equal to the string's byte offset in the pool,
// per SPEC_FULL.md section 4.2. Lookup by name is backed by a siphash
// bucket map rather than a plain Go map keyed on string: each Find/Insert
// hashes the name with siphash.Hash128 and the map itself is keyed on the
// resulting uint64, so the runtime's string-map hash never runs over the
// identifier bytes.
type SymbolTable struct {
	pool    []byte
	buckets map[uint64][]int32
}

const symNotFound int32 = -1

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{buckets: make(map[uint64][]int32)}
}

func (st *SymbolTable) hash(name string) uint64 {
	hi, _ := siphash.Hash128(symbolTableHashKey0, symbolTableHashKey1, []byte(name))
	return hi
}

// Find returns the index of name if already interned, or symNotFound.
func (st *SymbolTable) Find(name string) int32 {
	h := st.hash(name)
	for _, idx := range st.buckets[h] {
		if st.stringAt(idx) == name {
			return idx
		}
	}
	return symNotFound
}

// Insert returns the existing index for name, or interns it and returns a
// new one. createIfMissing=false makes Insert behave as a pure lookup.
func (st *SymbolTable) Insert(name string, createIfMissing bool) int32 {
	if idx := st.Find(name); idx != symNotFound {
		return idx
	}
	if !createIfMissing {
		return symNotFound
	}

	idx := int32(len(st.pool))
	st.pool = append(st.pool, []byte(name)...)
	st.pool = append(st.pool, 0) // NUL terminator so stringAt can recover length

	h := st.hash(name)
	st.buckets[h] = append(st.buckets[h], idx)
	return idx
}

// stringAt recovers the interned string starting at a pool offset
// previously returned by Insert, by scanning to the NUL terminator.
func (st *SymbolTable) stringAt(offset int32) string {
	end := offset
	for end < int32(len(st.pool)) && st.pool[end] != 0 {
		end++
	}
	return string(st.pool[offset:end])
}

// String returns the interned string for idx, or "" if out of range.
func (st *SymbolTable) String(idx int32) string {
	if idx < 0 || idx >= int32(len(st.pool)) {
		return ""
	}
	return st.stringAt(idx)
}
