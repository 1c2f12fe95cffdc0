package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInviteRegistry_PutTake(t *testing.T) {
	registry := NewInviteRegistry(time.Minute)

	registry.Put(100, "https://t.me/+abc", 42)

	artifact, ok := registry.Take(100)
	assert.True(t, ok)
	assert.Equal(t, "https://t.me/+abc", artifact.InviteLink)
	assert.Equal(t, 42, artifact.MessageID)

	// Take is destructive.
	_, ok = registry.Take(100)
	assert.False(t, ok)
}

func TestInviteRegistry_ExpiredEntryIsGone(t *testing.T) {
	registry := NewInviteRegistry(time.Millisecond)

	registry.Put(100, "https://t.me/+abc", 42)
	time.Sleep(5 * time.Millisecond)

	_, ok := registry.Take(100)
	assert.False(t, ok)
}

func TestInviteRegistry_ReplacesExistingEntry(t *testing.T) {
	registry := NewInviteRegistry(time.Minute)

	registry.Put(100, "https://t.me/+old", 1)
	registry.Put(100, "https://t.me/+new", 2)

	assert.Equal(t, 1, registry.Len())
	artifact, ok := registry.Take(100)
	assert.True(t, ok)
	assert.Equal(t, "https://t.me/+new", artifact.InviteLink)
}

func TestInviteRegistry_ConcurrentTakeSingleWinner(t *testing.T) {
	registry := NewInviteRegistry(time.Minute)
	registry.Put(100, "https://t.me/+abc", 42)

	const takers = 16
	var wg sync.WaitGroup
	wins := make(chan *InviteArtifact, takers)
	for i := 0; i < takers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if artifact, ok := registry.Take(100); ok {
				wins <- artifact
			}
		}()
	}
	wg.Wait()
	close(wins)

	var won int
	for range wins {
		won++
	}
	assert.Equal(t, 1, won)
}

func TestInviteRegistry_ConcurrentPutStaysBounded(t *testing.T) {
	registry := NewInviteRegistry(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < defaultRegistrySize; j++ {
				registry.Put(int64(base*defaultRegistrySize+j), "https://t.me/+x", j)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, registry.Len(), defaultRegistrySize)
}

func TestInviteRegistry_BoundedSize(t *testing.T) {
	registry := NewInviteRegistry(time.Minute)

	for i := 0; i < defaultRegistrySize+10; i++ {
		registry.Put(int64(i), fmt.Sprintf("https://t.me/+%d", i), i)
	}

	assert.LessOrEqual(t, registry.Len(), defaultRegistrySize)
}
