package observable

import (
	"fmt"
	"sync/atomic"
)

// globalIDCounter is the source of instance ids for objects and reactions.
var globalIDCounter uint64

// nextID returns the next unique id. Ids are never reused.
func nextID() uint64 {
	return atomic.AddUint64(&globalIDCounter, 1)
}

// PropertyID names one field of one Object instance.
// It is stable for the lifetime of the object and distinct across
// instances even when field names collide.
type PropertyID string

func propertyID(instance uint64, key string) PropertyID {
	return PropertyID(fmt.Sprintf("Observable(%d:%s)", instance, key))
}
