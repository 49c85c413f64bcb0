package presence

import (
	"context"
	"sort"
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestMemStore_PlayerRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	err := s.SetPlayer(ctx, &Record{ID: "p1", X: 3, Y: 4, RoomID: "r"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, err := s.GetPlayer(ctx, "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec == nil {
		t.Fatal("expected record, got nil")
	}

	testutil.AssertEqual(t, "id", rec.ID, "p1")
	testutil.AssertEqual(t, "x", rec.X, 3.0)
	testutil.AssertEqual(t, "y", rec.Y, 4.0)
	testutil.AssertEqual(t, "roomId", rec.RoomID, "r")
}

func TestMemStore_GetPlayer_Absent(t *testing.T) {
	s := NewMemStore()

	rec, err := s.GetPlayer(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record, got %+v", rec)
	}
}

func TestMemStore_ReturnedRecordIsACopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	s.SetPlayer(ctx, &Record{ID: "p1", X: 1, RoomID: "r"})

	rec, _ := s.GetPlayer(ctx, "p1")
	rec.X = 99

	again, _ := s.GetPlayer(ctx, "p1")
	testutil.AssertEqual(t, "x", again.X, 1.0)
}

func TestMemStore_Membership(t *testing.T) {
	tests := map[string]struct {
		ops        func(ctx context.Context, s *MemStore)
		room       string
		expMembers []string
	}{
		"single member": {
			ops: func(ctx context.Context, s *MemStore) {
				s.AddMember(ctx, "r1", "p1")
			},
			room:       "r1",
			expMembers: []string{"p1"},
		},
		"add is idempotent": {
			ops: func(ctx context.Context, s *MemStore) {
				s.AddMember(ctx, "r1", "p1")
				s.AddMember(ctx, "r1", "p1")
			},
			room:       "r1",
			expMembers: []string{"p1"},
		},
		"remove absent member is a no-op": {
			ops: func(ctx context.Context, s *MemStore) {
				s.AddMember(ctx, "r1", "p1")
				s.RemoveMember(ctx, "r1", "p2")
			},
			room:       "r1",
			expMembers: []string{"p1"},
		},
		"remove from unknown room is a no-op": {
			ops: func(ctx context.Context, s *MemStore) {
				s.RemoveMember(ctx, "r9", "p1")
			},
			room:       "r9",
			expMembers: nil,
		},
		"rooms are isolated": {
			ops: func(ctx context.Context, s *MemStore) {
				s.AddMember(ctx, "r1", "p1")
				s.AddMember(ctx, "r2", "p2")
			},
			room:       "r1",
			expMembers: []string{"p1"},
		},
		"emptied room": {
			ops: func(ctx context.Context, s *MemStore) {
				s.AddMember(ctx, "r1", "p1")
				s.RemoveMember(ctx, "r1", "p1")
			},
			room:       "r1",
			expMembers: nil,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := NewMemStore()
			tt.ops(ctx, s)

			members, err := s.Members(ctx, tt.room)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			sort.Strings(members)

			testutil.AssertEqual(t, "member count", len(members), len(tt.expMembers))
			for i, id := range tt.expMembers {
				testutil.AssertEqual(t, "member", members[i], id)
			}

			count, err := s.RoomCount(ctx, tt.room)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "room count", count, len(tt.expMembers))
		})
	}
}

func TestMemStore_DeletePlayerLeavesMembership(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	s.SetPlayer(ctx, &Record{ID: "p1", RoomID: "r1"})
	s.AddMember(ctx, "r1", "p1")

	if err := s.DeletePlayer(ctx, "p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, _ := s.GetPlayer(ctx, "p1")
	if rec != nil {
		t.Fatalf("expected record deleted, got %+v", rec)
	}

	// Membership removal is the caller's job, in membership-then-record
	// order; DeletePlayer must not do it implicitly.
	members, _ := s.Members(ctx, "r1")
	testutil.AssertEqual(t, "member count", len(members), 1)
}
