package gosam

import "fmt"

// Key identifies a variable in a Graph and Values. It packs a one-byte
// category character and a 56-bit index into a single uint64, so it is
// trivially ordered and hashable. Keys must be unique per logical variable
// and stable for the lifetime of a solving session.
type Key uint64

const keyIdxBits = 56

// NewKey packs a category character and an index into a Key.
func NewKey(chr byte, idx uint64) Key {
	return Key(uint64(chr)<<keyIdxBits | idx&(1<<keyIdxBits-1))
}

// X is shorthand for pose keys, NewKey('x', i).
func X(i uint64) Key { return NewKey('x', i) }

// L is shorthand for landmark keys, NewKey('l', i).
func L(i uint64) Key { return NewKey('l', i) }

// Chr returns the category character of the key.
func (k Key) Chr() byte { return byte(k >> keyIdxBits) }

// Idx returns the index of the key within its category.
func (k Key) Idx() uint64 { return uint64(k) & (1<<keyIdxBits - 1) }

func (k Key) String() string {
	c := k.Chr()
	if c < ' ' || c > '~' {
		return fmt.Sprintf("key(%d)", uint64(k))
	}
	return fmt.Sprintf("%c%d", c, k.Idx())
}
