package registry

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pavanpakhare/javanotes/internal/types"
)

func testDoc(relPath, title string, tags ...string) *types.DocumentInfo {
	return &types.DocumentInfo{
		RelPath: relPath,
		AbsPath: "/corpus/docs/" + relPath,
		Title:   title,
		Tags:    tags,
	}
}

func TestNewDocumentRegistry(t *testing.T) {
	registry := NewDocumentRegistry()

	assert.NotNil(t, registry)
	assert.NotNil(t, registry.documents)
	assert.NotNil(t, registry.watchers)
	assert.Equal(t, 0, registry.Count())
	assert.Empty(t, registry.Paths())
}

func TestDocumentRegistry_Register(t *testing.T) {
	registry := NewDocumentRegistry()

	doc := testDoc("core-java/collections.md", "Collections")
	registry.Register(doc)

	retrieved, exists := registry.Get("core-java/collections.md")
	assert.True(t, exists)
	assert.Equal(t, doc, retrieved)

	assert.Equal(t, 1, registry.Count())

	all := registry.GetAll()
	assert.Len(t, all, 1)
	assert.Equal(t, doc, all["core-java/collections.md"])
}

func TestDocumentRegistry_RegisterUpdates(t *testing.T) {
	registry := NewDocumentRegistry()

	registry.Register(testDoc("guide.md", "Guide"))

	updated := testDoc("guide.md", "Updated Guide")
	updated.Headings = []types.Heading{
		{Level: 1, Text: "Updated Guide", Anchor: "updated-guide", Line: 1},
	}
	registry.Register(updated)

	retrieved, exists := registry.Get("guide.md")
	assert.True(t, exists)
	assert.Equal(t, "Updated Guide", retrieved.Title)
	assert.Len(t, retrieved.Headings, 1)

	// Same key, so still one document
	assert.Equal(t, 1, registry.Count())
}

func TestDocumentRegistry_Remove(t *testing.T) {
	registry := NewDocumentRegistry()

	registry.Register(testDoc("guide.md", "Guide"))
	assert.Equal(t, 1, registry.Count())

	registry.Remove("guide.md")

	_, exists := registry.Get("guide.md")
	assert.False(t, exists)
	assert.Equal(t, 0, registry.Count())
	assert.Empty(t, registry.GetAll())
}

func TestDocumentRegistry_RemoveUnknownIsNoop(t *testing.T) {
	registry := NewDocumentRegistry()
	watcher := registry.Watch()

	registry.Remove("missing.md")

	assert.Equal(t, 0, registry.Count())
	select {
	case event := <-watcher:
		t.Fatalf("unexpected event %v for unknown document", event.Type)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestDocumentRegistry_Paths(t *testing.T) {
	registry := NewDocumentRegistry()

	registry.Register(testDoc("jvm/gc.md", "GC"))
	registry.Register(testDoc("index.md", "Index"))
	registry.Register(testDoc("core-java/oop.md", "OOP"))

	assert.Equal(t, []string{"core-java/oop.md", "index.md", "jvm/gc.md"}, registry.Paths())
}

func TestDocumentRegistry_ByTag(t *testing.T) {
	registry := NewDocumentRegistry()

	registry.Register(testDoc("threads.md", "Threads", "java", "concurrency"))
	registry.Register(testDoc("gc.md", "GC", "jvm"))
	registry.Register(testDoc("executors.md", "Executors", "concurrency"))

	tagged := registry.ByTag("concurrency")
	assert.Len(t, tagged, 2)
	assert.Equal(t, "executors.md", tagged[0].RelPath)
	assert.Equal(t, "threads.md", tagged[1].RelPath)

	assert.Empty(t, registry.ByTag("spring"))
}

func TestDocumentRegistry_Anchors(t *testing.T) {
	registry := NewDocumentRegistry()

	doc := testDoc("guide.md", "Guide")
	doc.Headings = []types.Heading{
		{Level: 1, Text: "Guide", Anchor: "guide", Line: 1},
		{Level: 2, Text: "Setup", Anchor: "setup", Line: 5},
	}
	registry.Register(doc)

	anchors, exists := registry.Anchors("guide.md")
	assert.True(t, exists)
	assert.Len(t, anchors, 2)
	assert.Contains(t, anchors, "guide")
	assert.Contains(t, anchors, "setup")

	_, exists = registry.Anchors("missing.md")
	assert.False(t, exists)
}

func TestDocumentRegistry_GetAllIsACopy(t *testing.T) {
	registry := NewDocumentRegistry()
	registry.Register(testDoc("guide.md", "Guide"))

	all := registry.GetAll()
	delete(all, "guide.md")

	assert.Equal(t, 1, registry.Count())
}

func TestDocumentRegistry_Watch(t *testing.T) {
	registry := NewDocumentRegistry()

	watcher := registry.Watch()
	assert.NotNil(t, watcher)

	doc := testDoc("guide.md", "Guide")

	go func() {
		time.Sleep(10 * time.Millisecond)
		registry.Register(doc)
	}()

	select {
	case event := <-watcher:
		assert.Equal(t, types.EventTypeAdded, event.Type)
		assert.Equal(t, doc, event.Document)
		assert.False(t, event.Timestamp.IsZero())
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Expected to receive document added event")
	}
}

func TestDocumentRegistry_UnWatch(t *testing.T) {
	registry := NewDocumentRegistry()

	watcher1 := registry.Watch()
	watcher2 := registry.Watch()

	assert.Len(t, registry.watchers, 2)

	registry.UnWatch(watcher1)

	assert.Len(t, registry.watchers, 1)

	// Verify the channel is closed
	select {
	case _, ok := <-watcher1:
		assert.False(t, ok, "Channel should be closed")
	case <-time.After(10 * time.Millisecond):
		t.Fatal("Channel should be closed immediately")
	}

	// Verify the other watcher is still active
	go func() {
		time.Sleep(10 * time.Millisecond)
		registry.Register(testDoc("guide.md", "Guide"))
	}()

	select {
	case event := <-watcher2:
		assert.Equal(t, types.EventTypeAdded, event.Type)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Second watcher should still receive events")
	}
}

func TestDocumentRegistry_EventTypes(t *testing.T) {
	registry := NewDocumentRegistry()
	watcher := registry.Watch()

	doc := testDoc("guide.md", "Guide")

	// Add event
	go func() {
		time.Sleep(10 * time.Millisecond)
		registry.Register(doc)
	}()

	select {
	case event := <-watcher:
		assert.Equal(t, types.EventTypeAdded, event.Type)
		assert.Equal(t, doc, event.Document)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Expected added event")
	}

	// Update event
	updated := testDoc("guide.md", "Updated Guide")

	go func() {
		time.Sleep(10 * time.Millisecond)
		registry.Register(updated)
	}()

	select {
	case event := <-watcher:
		assert.Equal(t, types.EventTypeUpdated, event.Type)
		assert.Equal(t, updated, event.Document)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Expected updated event")
	}

	// Remove event
	go func() {
		time.Sleep(10 * time.Millisecond)
		registry.Remove("guide.md")
	}()

	select {
	case event := <-watcher:
		assert.Equal(t, types.EventTypeRemoved, event.Type)
		assert.Equal(t, "guide.md", event.Document.RelPath)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Expected removed event")
	}
}

func TestDocumentRegistry_FullWatcherDoesNotBlock(t *testing.T) {
	registry := NewDocumentRegistry()
	watcher := registry.Watch()

	// Overfill the buffered watcher channel; Register must not block
	done := make(chan struct{})
	go func() {
		for i := 0; i < 150; i++ {
			registry.Register(testDoc(fmt.Sprintf("doc%d.md", i), "Doc"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Register blocked on a full watcher channel")
	}

	assert.Equal(t, 150, registry.Count())
	// The buffer holds the first 100 events; the rest were dropped
	assert.Len(t, watcher, 100)
}

func TestDocumentRegistry_ConcurrentAccess(t *testing.T) {
	registry := NewDocumentRegistry()

	done := make(chan bool)

	for i := 0; i < 10; i++ {
		go func(index int) {
			registry.Register(testDoc(fmt.Sprintf("doc%d.md", index), "Doc"))
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	assert.Equal(t, 10, registry.Count())

	// Concurrent reads
	for i := 0; i < 10; i++ {
		go func(index int) {
			_, exists := registry.Get(fmt.Sprintf("doc%d.md", index))
			assert.True(t, exists)
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}
