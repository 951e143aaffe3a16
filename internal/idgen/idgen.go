package idgen

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node     *snowflake.Node
	nodeOnce sync.Once
)

// New returns a new draft identifier as string. Identifiers are snowflakes,
// therefore time-ordered and unique among concurrently created drafts. It is
// implemented as a thin wrapper so tests can stub it.

var NewFunc = func() string {
	nodeOnce.Do(func() {
		n, err := snowflake.NewNode(1)
		if err != nil {
			panic(err)
		}
		node = n
	})
	return node.Generate().String()
}

func New() string { return NewFunc() }
