package wsgateway

import (
	"testing"
)

func TestConnectionRegistry_AddRemove(t *testing.T) {
	registry := NewConnectionRegistry()

	conn := &Connection{
		ID:     "conn-1",
		UserID: "user-1",
	}

	// Add connection
	registry.Add(conn)

	// Verify connection exists
	retrieved, exists := registry.Get("conn-1")
	if !exists {
		t.Error("Expected connection to exist")
	}
	if retrieved.ID != "conn-1" {
		t.Errorf("Expected connection ID %s, got %s", "conn-1", retrieved.ID)
	}

	// Verify count
	if registry.Count() != 1 {
		t.Errorf("Expected 1 connection, got %d", registry.Count())
	}

	// Remove connection
	registry.Remove("conn-1")

	// Verify connection removed
	_, exists = registry.Get("conn-1")
	if exists {
		t.Error("Expected connection to be removed")
	}

	if registry.Count() != 0 {
		t.Errorf("Expected 0 connections, got %d", registry.Count())
	}
}

func TestConnectionRegistry_RemoveMissing(t *testing.T) {
	registry := NewConnectionRegistry()

	// Removing a connection that was never added should be a no-op
	registry.Remove("conn-1")

	if registry.Count() != 0 {
		t.Errorf("Expected 0 connections, got %d", registry.Count())
	}
}

func TestConnectionRegistry_GetAll(t *testing.T) {
	registry := NewConnectionRegistry()

	conn1 := &Connection{ID: "conn-1", UserID: "user-1"}
	conn2 := &Connection{ID: "conn-2", UserID: "user-2"}

	registry.Add(conn1)
	registry.Add(conn2)

	all := registry.GetAll()
	if len(all) != 2 {
		t.Errorf("Expected 2 connections, got %d", len(all))
	}
}
