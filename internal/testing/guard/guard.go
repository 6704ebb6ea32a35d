package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("LIBRIS_TEST_MODE") == "" {
			_ = os.Setenv("LIBRIS_TEST_MODE", "1")
		}
	})
}
