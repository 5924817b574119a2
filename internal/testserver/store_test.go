package testserver_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/jord1e/lettuce-core/internal/testserver"
)

var _ = Describe("Store", func() {
	var store *testserver.Store

	BeforeEach(func() {
		store = testserver.NewStore()
	})

	Describe("Set() / Get()", func() {
		It("can read a key that is written", func() {
			Expect(store.Set("foo", []byte("bar"))).To(Succeed())

			value, ok := store.Get("foo")
			Expect(ok).To(BeTrue())
			Expect(value).To(Equal([]byte("bar")))
		})

		It("reports a missing key", func() {
			_, ok := store.Get("nope")
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Del() / Exists()", func() {
		It("removes only keys that exist", func() {
			Expect(store.Set("a", []byte("1"))).To(Succeed())

			Expect(store.Del("a", "b")).To(Equal(int64(1)))
			Expect(store.Exists("a")).To(BeFalse())
		})
	})

	Describe("Incr()", func() {
		It("starts from zero and counts up", func() {
			Expect(store.Incr("n")).To(Equal(int64(1)))
			Expect(store.Incr("n")).To(Equal(int64(2)))
		})

		It("rejects non-numeric values", func() {
			Expect(store.Set("s", []byte("not a number"))).To(Succeed())

			_, err := store.Incr("s")
			Expect(err).NotTo(Succeed())
		})
	})

	Describe("RPush() / LRange()", func() {
		BeforeEach(func() {
			n, err := store.RPush("l", []byte("a"), []byte("b"), []byte("c"))
			Expect(err).To(Succeed())
			Expect(n).To(Equal(int64(3)))
		})

		It("returns the full list for 0..-1", func() {
			Expect(store.LRange("l", 0, -1)).To(Equal([][]byte{
				[]byte("a"), []byte("b"), []byte("c"),
			}))
		})

		It("clamps out-of-range indexes", func() {
			Expect(store.LRange("l", 1, 100)).To(Equal([][]byte{
				[]byte("b"), []byte("c"),
			}))
		})

		It("returns an empty page for an inverted range", func() {
			Expect(store.LRange("l", 2, 1)).To(BeEmpty())
		})
	})

	Describe("SAdd() / SMembers()", func() {
		It("counts only new members", func() {
			added, err := store.SAdd("s", []byte("x"), []byte("y"), []byte("x"))
			Expect(err).To(Succeed())
			Expect(added).To(Equal(int64(2)))

			Expect(store.SMembers("s")).To(ConsistOf([]byte("x"), []byte("y")))
		})
	})

	Describe("HSet() / HGetAll()", func() {
		It("distinguishes new fields from overwrites", func() {
			Expect(store.HSet("h", "f", []byte("1"))).To(Equal(int64(1)))
			Expect(store.HSet("h", "f", []byte("2"))).To(Equal(int64(0)))

			Expect(store.HGetAll("h")).To(Equal([][]byte{
				[]byte("f"), []byte("2"),
			}))
		})
	})

	Describe("Keys()", func() {
		It("lists every top-level key", func() {
			Expect(store.Set("k1", []byte("v"))).To(Succeed())
			Expect(store.Set("k2", []byte("v"))).To(Succeed())

			Expect(store.Keys()).To(ConsistOf([]byte("k1"), []byte("k2")))
		})
	})
})
