package voxelmap

import (
	"fmt"
	"strconv"
	"strings"
)

// Key is a world block coordinate. Field order follows the stored form "x, z, y".
type Key struct {
	X int
	Z int
	Y int
}

func (k Key) String() string {
	return strconv.Itoa(k.X) + ", " + strconv.Itoa(k.Z) + ", " + strconv.Itoa(k.Y)
}

// ParseKey parses the "x, z, y" form written by Key.String.
func ParseKey(s string) (Key, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Key{}, fmt.Errorf("bad key %q: want \"x, z, y\"", s)
	}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Key{}, fmt.Errorf("bad key %q: %w", s, err)
		}
		v[i] = n
	}
	return Key{X: v[0], Z: v[1], Y: v[2]}, nil
}

// Neighbors returns the six face-adjacent keys.
func (k Key) Neighbors() [6]Key {
	return [6]Key{
		{k.X + 1, k.Z, k.Y},
		{k.X - 1, k.Z, k.Y},
		{k.X, k.Z + 1, k.Y},
		{k.X, k.Z - 1, k.Y},
		{k.X, k.Z, k.Y + 1},
		{k.X, k.Z, k.Y - 1},
	}
}
