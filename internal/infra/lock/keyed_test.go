package lock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	k := New()
	var n int
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("clan:1")
			n++
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, n)
	assert.Empty(t, k.locks, "sin holders no quedan entradas colgadas")
}

func TestKeyedMutexTryLock(t *testing.T) {
	k := New()
	unlock := k.Lock("clan:1")

	_, ok := k.TryLock("clan:1")
	assert.False(t, ok, "misma clave ocupada")

	other, ok := k.TryLock("clan:2")
	assert.True(t, ok, "otra clave no se bloquea")
	other()

	unlock()
	again, ok := k.TryLock("clan:1")
	assert.True(t, ok)
	again()
}
