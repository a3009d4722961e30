package application

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	locks := NewKeyedMutex()
	counter := 0
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.Lock("series-1")
			defer release()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Empty(t, locks.locks)
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	locks := NewKeyedMutex()

	releaseA := locks.Lock("a")
	releaseB := locks.Lock("b")
	releaseB()
	releaseA()

	assert.Empty(t, locks.locks)
}
