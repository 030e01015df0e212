// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package gen turns a minimized automaton into matcher tables
// and generated Go source. Tables.Match runs the exact algorithm
// the emitted code performs, so the generated scanner can be
// tested without compiling it.
package gen

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/dchest/siphash"
	"golang.org/x/exp/maps"

	"github.com/SnellerInc/lx/autom"
)

// states and classes are addressed with int16; the automaton
// node cap keeps real tables far below this
const maxTableStates = 1 << 15

// Tables is the compiled form of one scanner: a rune-to-class
// map and a row-major state transition table.
//
// State 0 is the fail state, state 1 the start state; class 0
// holds every rune no rule mentions. Accept[s] is the rule a
// state accepts, or -1.
type Tables struct {
	NumStates  int
	NumClasses int
	Start      int

	// rune-range to class lookup, sorted by Lo, non-overlapping;
	// runes outside every range are class 0
	ClassLo []rune
	ClassHi []rune
	ClassID []int16

	// Next[state*NumClasses+class]; 0 = fail
	Next []int16

	Accept []int16

	// siphash-64 of the serialized tables; emitted as a const in
	// generated code and carried in the blob header
	Fingerprint uint64
}

// fixed siphash keys; fingerprints must be stable across builds
// and platforms
const (
	fingerprintK0 = 0x6c78207461626c65 // "lx table"
	fingerprintK1 = 0x66696e6765727072 // "fingerpr"
)

func fingerprint(buf []byte) uint64 {
	return siphash.Hash(fingerprintK0, fingerprintK1, buf)
}

// Build compiles tables from a minimized, renumbered automaton.
// The automaton's edges must still carry the derived alphabet:
// across all states, two ranges are either identical or share no
// rune. Ranges with identical transition columns collapse into
// one character class.
func Build(store *autom.DFAStore) (*Tables, error) {
	n := store.NumberOfNodes()
	if n == 0 {
		return nil, fmt.Errorf("gen: empty automaton")
	}
	if n+1 >= maxTableStates {
		return nil, fmt.Errorf("gen: %d states do not fit the table encoding", n+1)
	}

	type rangeT struct {
		lo, hi rune
	}
	transitions := make([][]autom.Transition, n)
	pieceSet := map[rangeT]struct{}{}
	for s := 0; s < n; s++ {
		tr, err := store.Transitions(s)
		if err != nil {
			return nil, fmt.Errorf("gen: %v", err)
		}
		transitions[s] = tr
		for _, e := range tr {
			pieceSet[rangeT{e.Lo, e.Hi}] = struct{}{}
		}
	}
	pieces := maps.Keys(pieceSet)
	slices.SortFunc(pieces, func(a, b rangeT) int {
		if c := cmp.Compare(a.lo, b.lo); c != 0 {
			return c
		}
		return cmp.Compare(a.hi, b.hi)
	})
	for i := 1; i < len(pieces); i++ {
		if pieces[i].lo <= pieces[i-1].hi {
			return nil, fmt.Errorf("gen: overlapping symbol ranges %v and %v",
				pieces[i-1], pieces[i])
		}
	}

	// per-piece transition column; piece columns that agree for
	// every state share a character class
	target := make([]map[rangeT]int16, n)
	for s := 0; s < n; s++ {
		target[s] = make(map[rangeT]int16, len(transitions[s]))
		for _, e := range transitions[s] {
			target[s][rangeT{e.Lo, e.Hi}] = int16(e.To + 1)
		}
	}
	columns := [][]int16{make([]int16, n)} // class 0: no transition anywhere
	classOf := make([]int16, len(pieces))
	seen := map[string]int16{}
	key := make([]byte, 2*n)
	for i, p := range pieces {
		col := make([]int16, n)
		for s := 0; s < n; s++ {
			col[s] = target[s][p]
			binary.LittleEndian.PutUint16(key[2*s:], uint16(col[s]))
		}
		id, ok := seen[string(key)]
		if !ok {
			id = int16(len(columns))
			seen[string(key)] = id
			columns = append(columns, col)
		}
		classOf[i] = id
	}

	t := &Tables{
		NumStates:  n + 1,
		NumClasses: len(columns),
		Start:      1,
	}

	// adjacent pieces with the same class collapse into one
	// lookup range
	for i, p := range pieces {
		id := classOf[i]
		if k := len(t.ClassID); k > 0 && t.ClassID[k-1] == id && t.ClassHi[k-1]+1 == p.lo {
			t.ClassHi[k-1] = p.hi
			continue
		}
		t.ClassLo = append(t.ClassLo, p.lo)
		t.ClassHi = append(t.ClassHi, p.hi)
		t.ClassID = append(t.ClassID, id)
	}

	t.Next = make([]int16, t.NumStates*t.NumClasses)
	for s := 0; s < n; s++ {
		row := (s + 1) * t.NumClasses
		for c := 1; c < t.NumClasses; c++ {
			t.Next[row+c] = columns[c][s]
		}
	}
	t.Accept = make([]int16, t.NumStates)
	t.Accept[0] = -1
	for s := 0; s < n; s++ {
		rule, err := store.AcceptRule(s)
		if err != nil {
			return nil, fmt.Errorf("gen: %v", err)
		}
		t.Accept[s+1] = int16(rule)
	}
	t.Fingerprint = fingerprint(t.appendTo(nil))
	return t, nil
}

// ClassOf maps a rune to its character class; class 0 means no
// rule mentions the rune. Same binary search as the emitted
// code.
func (t *Tables) ClassOf(r rune) int {
	lo, hi := 0, len(t.ClassLo)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case r < t.ClassLo[mid]:
			hi = mid
		case r > t.ClassHi[mid]:
			lo = mid + 1
		default:
			return int(t.ClassID[mid])
		}
	}
	return 0
}

// Match reports the longest match at the start of input: the
// rule index and the length in bytes, or (-1, 0) when no rule
// matches. This is, statement for statement, the matcher the
// emitted code runs.
func (t *Tables) Match(input string) (rule, length int) {
	rule, length = -1, 0
	state := t.Start
	if a := t.Accept[state]; a >= 0 {
		rule, length = int(a), 0
	}
	pos := 0
	for pos < len(input) {
		r, width := utf8.DecodeRuneInString(input[pos:])
		state = int(t.Next[state*t.NumClasses+t.ClassOf(r)])
		if state == 0 {
			break
		}
		pos += width
		if a := t.Accept[state]; a >= 0 {
			rule, length = int(a), pos
		}
	}
	return
}

// appendTo serializes the tables little-endian; the fingerprint
// is computed over exactly these bytes and is not part of them.
func (t *Tables) appendTo(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(t.NumStates))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(t.NumClasses))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(t.Start))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(t.ClassID)))
	for i := range t.ClassID {
		dst = binary.LittleEndian.AppendUint32(dst, uint32(t.ClassLo[i]))
		dst = binary.LittleEndian.AppendUint32(dst, uint32(t.ClassHi[i]))
		dst = binary.LittleEndian.AppendUint16(dst, uint16(t.ClassID[i]))
	}
	for _, v := range t.Next {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(v))
	}
	for _, v := range t.Accept {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(v))
	}
	return dst
}

// parseTables is the inverse of appendTo; it validates every
// field so that a corrupt buffer cannot yield an out-of-range
// table.
func parseTables(buf []byte) (*Tables, error) {
	if len(buf) < 16 {
		return nil, fmt.Errorf("%w: truncated header", ErrCorruptBlob)
	}
	numStates := int(binary.LittleEndian.Uint32(buf[0:]))
	numClasses := int(binary.LittleEndian.Uint32(buf[4:]))
	start := int(binary.LittleEndian.Uint32(buf[8:]))
	numRanges := int(binary.LittleEndian.Uint32(buf[12:]))
	if numStates <= 0 || numStates >= maxTableStates ||
		numClasses <= 0 || numClasses >= maxTableStates ||
		numRanges < 0 || numRanges >= maxTableStates {
		return nil, fmt.Errorf("%w: implausible dimensions %dx%d (%d ranges)",
			ErrCorruptBlob, numStates, numClasses, numRanges)
	}
	if start < 0 || start >= numStates {
		return nil, fmt.Errorf("%w: start state %d out of range", ErrCorruptBlob, start)
	}
	need := 16 + numRanges*10 + numStates*numClasses*2 + numStates*2
	if len(buf) != need {
		return nil, fmt.Errorf("%w: %d table bytes, want %d", ErrCorruptBlob, len(buf), need)
	}
	t := &Tables{
		NumStates:  numStates,
		NumClasses: numClasses,
		Start:      start,
		ClassLo:    make([]rune, numRanges),
		ClassHi:    make([]rune, numRanges),
		ClassID:    make([]int16, numRanges),
		Next:       make([]int16, numStates*numClasses),
		Accept:     make([]int16, numStates),
	}
	off := 16
	for i := 0; i < numRanges; i++ {
		t.ClassLo[i] = rune(binary.LittleEndian.Uint32(buf[off:]))
		t.ClassHi[i] = rune(binary.LittleEndian.Uint32(buf[off+4:]))
		t.ClassID[i] = int16(binary.LittleEndian.Uint16(buf[off+8:]))
		off += 10
		if t.ClassLo[i] > t.ClassHi[i] || (i > 0 && t.ClassLo[i] <= t.ClassHi[i-1]) {
			return nil, fmt.Errorf("%w: class ranges not sorted", ErrCorruptBlob)
		}
		if int(t.ClassID[i]) < 0 || int(t.ClassID[i]) >= numClasses {
			return nil, fmt.Errorf("%w: class id %d out of range", ErrCorruptBlob, t.ClassID[i])
		}
	}
	for i := range t.Next {
		t.Next[i] = int16(binary.LittleEndian.Uint16(buf[off:]))
		off += 2
		if int(t.Next[i]) < 0 || int(t.Next[i]) >= numStates {
			return nil, fmt.Errorf("%w: transition target %d out of range", ErrCorruptBlob, t.Next[i])
		}
	}
	for i := range t.Accept {
		t.Accept[i] = int16(binary.LittleEndian.Uint16(buf[off:]))
		off += 2
		if t.Accept[i] < -1 {
			return nil, fmt.Errorf("%w: accept rule %d out of range", ErrCorruptBlob, t.Accept[i])
		}
	}
	return t, nil
}
