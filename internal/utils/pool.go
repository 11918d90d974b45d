package utils

import (
	"github.com/panjf2000/ants/v2"
)

// The agent runs a handful of long-lived loops plus short notification handlers.
const size = 1024

// Pool .
var Pool *ants.Pool

func init() {
	Pool, _ = ants.NewPool(size, ants.WithNonblocking(true))
}
