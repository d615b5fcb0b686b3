package cairoprofiler

import (
	"log"
	"sync"
)

// warnOnce logs a [WARNING]-tagged message to stderr the first time it is
// reached for a given *sync.Once, silencing further repeats — the same
// pattern used to avoid flooding stderr with a message that would
// otherwise repeat once per unresolved program counter.
func warnOnce(once *sync.Once, format string, args ...interface{}) {
	once.Do(func() {
		log.Printf("[WARNING] "+format, args...)
	})
}

var warnMissingInlineAnnotations = &sync.Once{}
