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

package autom

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// epsilonRune sits just above the valid rune space so that every
// real rune, utf8.MaxRune included, stays usable in patterns.
const epsilonRune = utf8.MaxRune + 1

// symbolRangeT packs the min and max rune of an inclusive range
// into one comparable word.
type symbolRangeT uint64

const edgeEpsilonRange = symbolRangeT(epsilonRune) | (symbolRangeT(epsilonRune) << 32)

func newSymbolRange(min, max rune) symbolRangeT {
	return symbolRangeT(min) | (symbolRangeT(max) << 32)
}

func (symbolRange symbolRangeT) split() (min, max rune) {
	min = rune(symbolRange & 0xFFFFFFFF)
	max = rune(symbolRange >> 32)
	return
}

func (symbolRange symbolRangeT) String() string {
	min, max := symbolRange.split()
	if min == epsilonRune {
		return "<ε>"
	}
	prettyRune := func(r rune) string {
		if ((r >= '0') && (r <= '9')) ||
			((r >= 'A') && (r <= 'Z')) ||
			((r >= 'a') && (r <= 'z')) {
			return string(r)
		}
		if r == unicode.MaxRune {
			return "∞"
		}
		return fmt.Sprintf("0x%X", r)
	}
	minStr := prettyRune(min)
	maxStr := prettyRune(max)
	if minStr == maxStr {
		return minStr
	}
	return fmt.Sprintf("%v..%v", minStr, maxStr)
}

func symbolRangesToString(symbolRanges []symbolRangeT) string {
	result := ""
	for _, symbolRange := range symbolRanges {
		result += symbolRange.String() + ","
	}
	return result
}
