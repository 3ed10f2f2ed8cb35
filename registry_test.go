package accord_test

import (
	"context"
	"testing"

	"github.com/grcware/accord"
	"github.com/grcware/accord/acr"
	"github.com/grcware/accord/id"
	"github.com/grcware/accord/store/memory"
)

// countingRoleStore counts bulk listings to observe registry cache
// behavior.
type countingRoleStore struct {
	acr.Store
	lists int
}

func (c *countingRoleStore) ListRoles(ctx context.Context, filter *acr.ListFilter) ([]*acr.Role, error) {
	c.lists++
	return c.Store.ListRoles(ctx, filter)
}

func TestRegistryMemoizesTypeListings(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	for _, r := range []*acr.Role{
		{ObjectType: "program", Name: "Program Manager", Capabilities: acr.Capabilities{Read: true, Update: true}},
		{ObjectType: "program", Name: "Program Reader", Capabilities: acr.Capabilities{Read: true}},
		{ObjectType: "audit", Name: "Audit Captain", Capabilities: acr.Capabilities{Read: true}},
	} {
		role := *r
		role.ID = id.NewRoleID()
		if err := st.CreateRole(ctx, &role); err != nil {
			t.Fatalf("CreateRole: %v", err)
		}
	}

	counting := &countingRoleStore{Store: st}
	reg := accord.NewRegistry(counting)

	roles, err := reg.RolesFor(ctx, "program")
	if err != nil {
		t.Fatalf("RolesFor: %v", err)
	}
	if len(roles) != 2 {
		t.Fatalf("expected 2 program roles, got %d", len(roles))
	}
	if counting.lists != 1 {
		t.Fatalf("expected one store listing, got %d", counting.lists)
	}

	// The second call is served from the cache.
	if _, err := reg.RolesFor(ctx, "program"); err != nil {
		t.Fatalf("RolesFor: %v", err)
	}
	if counting.lists != 1 {
		t.Fatalf("cached listing still hit the store, %d listings", counting.lists)
	}

	// Any role mutation drops the type listings.
	reg.Invalidate(roles[0].ID)
	if _, err := reg.RolesFor(ctx, "program"); err != nil {
		t.Fatalf("RolesFor: %v", err)
	}
	if counting.lists != 2 {
		t.Fatalf("expected a reload after Invalidate, got %d listings", counting.lists)
	}

	reg.InvalidateAll()
	if _, err := reg.RolesFor(ctx, "program"); err != nil {
		t.Fatalf("RolesFor: %v", err)
	}
	if counting.lists != 3 {
		t.Fatalf("expected a reload after InvalidateAll, got %d listings", counting.lists)
	}
}
