package mock

import (
	"strconv"

	"github.com/Borislavv/count-min-sketch/pkg/utils"
)

// Entry is an element with the total count it should receive.
type Entry struct {
	Element []byte
	Count   uint64
}

// GenerateStream produces num entries with elements "1".."num" where entry i has count
// Mod(i, modulus). Equal arguments always produce the same stream, so tests and benchmarks
// can compare sketch estimates against exact counts.
func GenerateStream(num, modulus int) []Entry {
	list := make([]Entry, 0, num)
	for i := 1; i <= num; i++ {
		list = append(list, Entry{
			Element: []byte(strconv.Itoa(i)),
			Count:   uint64(utils.Mod(i, modulus)),
		})
	}
	return list
}

// Total sums the counts of all entries.
func Total(entries []Entry) uint64 {
	var total uint64
	for _, e := range entries {
		total += e.Count
	}
	return total
}

// GenerateElements returns num distinct elements shaped like cache keys, used by benchmarks.
func GenerateElements(path string, num int) [][]byte {
	list := make([][]byte, 0, num)
	for i := 0; i < num; i++ {
		list = append(list, []byte(path+"?project[id]=285&domain=1x001.com&language=en&choice="+strconv.Itoa(i)))
	}
	return list
}
