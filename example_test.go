package valmap_test

import (
	"fmt"

	"github.com/valmap/valmap"
	"github.com/valmap/valmap/value"
)

func Example() {
	tr, err := valmap.New(
		[]value.Value{value.Text("foo"), value.Text("bar"), value.Text("test")},
		[]value.Value{value.Int32(1), value.Int32(2), value.Int32(3)},
		[]valmap.Binding{{Input: "word", Output: "id"}},
	)
	if err != nil {
		panic(err)
	}

	for _, key := range []string{"bar", "missing"} {
		mapped, _ := tr.Lookup(value.Text(key)).AsInt32()
		fmt.Printf("%s -> %d\n", key, mapped)
	}
	// Output:
	// bar -> 2
	// missing -> 0
}

func ExampleTransformer_ReverseLookup() {
	tr, err := valmap.New(
		[]value.Value{value.Text("a"), value.Text("b"), value.Text("c")},
		[]value.Value{value.Text("foo1"), value.Text("foo2"), value.Text("foo1")},
		nil,
		valmap.WithKeyMode(true),
	)
	if err != nil {
		panic(err)
	}

	code, _ := tr.Lookup(value.Text("b")).AsUint32()
	original, _, _ := tr.ReverseLookup(uint64(code))
	fmt.Printf("code %d -> %s\n", code, original.TextValue())
	// Output:
	// code 2 -> foo2
}
