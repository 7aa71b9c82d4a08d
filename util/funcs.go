package util

import (
	"cmp"
	"github.com/hashicorp/go-set/v3"
	"iter"
)

func ConcatIter[A any](iter ...iter.Seq[A]) iter.Seq[A] {
	return func(yield func(A) bool) {
		for _, thisIter := range iter {
			for v := range thisIter {
				if !yield(v) {
					return
				}
			}
		}
	}
}

func SingleIter[A any](elem A) iter.Seq[A] {
	return func(yield func(A) bool) {
		yield(elem)
	}
}

func ComparingHashable[A set.Hasher[B], B set.Hash](a, b A) int {
	return cmp.Compare(a.Hash(), b.Hash())
}
