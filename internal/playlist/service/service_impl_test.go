package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/revitfy/revitfy/internal/clock"
	playlistdomain "github.com/revitfy/revitfy/internal/playlist/domain"
	reactiondomain "github.com/revitfy/revitfy/internal/reaction/domain"
	reactionservice "github.com/revitfy/revitfy/internal/reaction/service"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestAddFamilyAssignsNextOrder(t *testing.T) {
	svc, db, _ := setupPlaylistService(t)
	ctx := context.Background()

	seedFamily(t, db, "fam_a", "PWA_DOR_A")
	seedFamily(t, db, "fam_b", "PWA_DOR_B")
	seedFamily(t, db, "fam_c", "PWA_DOR_C")

	playlist, err := svc.Create(ctx, playlistdomain.CreatePlaylistRequest{Name: "Doors", UserID: "usr_1"})
	if err != nil {
		t.Fatalf("create playlist: %v", err)
	}

	if err := svc.AddFamily(ctx, playlistdomain.AddFamilyRequest{PlaylistID: playlist.ID, FamilyID: "fam_a"}); err != nil {
		t.Fatalf("add fam_a: %v", err)
	}
	if err := svc.AddFamily(ctx, playlistdomain.AddFamilyRequest{PlaylistID: playlist.ID, FamilyID: "fam_b"}); err != nil {
		t.Fatalf("add fam_b: %v", err)
	}
	explicit := 7
	if err := svc.AddFamily(ctx, playlistdomain.AddFamilyRequest{PlaylistID: playlist.ID, FamilyID: "fam_c", Order: &explicit}); err != nil {
		t.Fatalf("add fam_c: %v", err)
	}

	orders := map[string]int{}
	rows, err := db.Raw(`SELECT family_id, sort_order FROM playlist_families WHERE playlist_id = ?`, playlist.ID).Rows()
	if err != nil {
		t.Fatalf("read orders: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var familyID string
		var order int
		if err := rows.Scan(&familyID, &order); err != nil {
			t.Fatalf("scan order: %v", err)
		}
		orders[familyID] = order
	}

	if orders["fam_a"] != 0 {
		t.Fatalf("expected first member at order 0, got %d", orders["fam_a"])
	}
	if orders["fam_b"] != 1 {
		t.Fatalf("expected second member at order 1, got %d", orders["fam_b"])
	}
	if orders["fam_c"] != 7 {
		t.Fatalf("expected explicit order 7, got %d", orders["fam_c"])
	}
}

func TestAddFamilyDuplicateConflict(t *testing.T) {
	svc, db, _ := setupPlaylistService(t)
	ctx := context.Background()

	seedFamily(t, db, "fam_a", "PWA_DOR_A")
	playlist, err := svc.Create(ctx, playlistdomain.CreatePlaylistRequest{Name: "Doors", UserID: "usr_1"})
	if err != nil {
		t.Fatalf("create playlist: %v", err)
	}

	if err := svc.AddFamily(ctx, playlistdomain.AddFamilyRequest{PlaylistID: playlist.ID, FamilyID: "fam_a"}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	err = svc.AddFamily(ctx, playlistdomain.AddFamilyRequest{PlaylistID: playlist.ID, FamilyID: "fam_a"})
	if err != playlistdomain.ErrAlreadyMember {
		t.Fatalf("expected already member, got %v", err)
	}

	counts, err := svc.Counts(ctx, playlist.ID)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts.FamiliesCount != 1 {
		t.Fatalf("expected membership to grow by exactly 1, got %d", counts.FamiliesCount)
	}
}

func TestAddFamilyUnknownReferences(t *testing.T) {
	svc, db, _ := setupPlaylistService(t)
	ctx := context.Background()

	seedFamily(t, db, "fam_a", "PWA_DOR_A")

	err := svc.AddFamily(ctx, playlistdomain.AddFamilyRequest{PlaylistID: "pls_missing", FamilyID: "fam_a"})
	if err != playlistdomain.ErrPlaylistNotFound {
		t.Fatalf("expected playlist not found, got %v", err)
	}

	playlist, err := svc.Create(ctx, playlistdomain.CreatePlaylistRequest{Name: "Doors", UserID: "usr_1"})
	if err != nil {
		t.Fatalf("create playlist: %v", err)
	}
	err = svc.AddFamily(ctx, playlistdomain.AddFamilyRequest{PlaylistID: playlist.ID, FamilyID: "fam_missing"})
	if err != playlistdomain.ErrFamilyNotFound {
		t.Fatalf("expected family not found, got %v", err)
	}
}

func TestMembersOrdered(t *testing.T) {
	svc, db, _ := setupPlaylistService(t)
	ctx := context.Background()

	seedFamily(t, db, "fam_a", "PWA_DOR_A")
	seedFamily(t, db, "fam_b", "PWA_DOR_B")
	seedFamily(t, db, "fam_c", "PWA_DOR_C")

	playlist, err := svc.Create(ctx, playlistdomain.CreatePlaylistRequest{Name: "Doors", UserID: "usr_1"})
	if err != nil {
		t.Fatalf("create playlist: %v", err)
	}

	five := 5
	two := 2
	if err := svc.AddFamily(ctx, playlistdomain.AddFamilyRequest{PlaylistID: playlist.ID, FamilyID: "fam_a", Order: &five}); err != nil {
		t.Fatalf("add fam_a: %v", err)
	}
	if err := svc.AddFamily(ctx, playlistdomain.AddFamilyRequest{PlaylistID: playlist.ID, FamilyID: "fam_b", Order: &two}); err != nil {
		t.Fatalf("add fam_b: %v", err)
	}
	if err := svc.AddFamily(ctx, playlistdomain.AddFamilyRequest{PlaylistID: playlist.ID, FamilyID: "fam_c"}); err != nil {
		t.Fatalf("add fam_c: %v", err)
	}

	members, err := svc.MembersOrdered(ctx, playlist.ID)
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("expected 3 members, got %d", len(members))
	}
	// fam_c defaults to max(order)+1 = 6
	got := []string{members[0].ID, members[1].ID, members[2].ID}
	want := []string{"fam_b", "fam_a", "fam_c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestRemoveFamily(t *testing.T) {
	svc, db, _ := setupPlaylistService(t)
	ctx := context.Background()

	seedFamily(t, db, "fam_a", "PWA_DOR_A")
	playlist, err := svc.Create(ctx, playlistdomain.CreatePlaylistRequest{Name: "Doors", UserID: "usr_1"})
	if err != nil {
		t.Fatalf("create playlist: %v", err)
	}
	if err := svc.AddFamily(ctx, playlistdomain.AddFamilyRequest{PlaylistID: playlist.ID, FamilyID: "fam_a"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := svc.RemoveFamily(ctx, playlist.ID, "fam_a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := svc.RemoveFamily(ctx, playlist.ID, "fam_a"); err != playlistdomain.ErrNotMember {
		t.Fatalf("expected not member on second remove, got %v", err)
	}
}

func TestDerivedViews(t *testing.T) {
	svc, db, clk := setupPlaylistService(t)
	ctx := context.Background()

	reactionSvc := newReactionService(t, db, clk)

	// seven playlists created a minute apart, likes increasing with age
	ids := make([]string, 0, 7)
	for i := 0; i < 7; i++ {
		playlist, err := svc.Create(ctx, playlistdomain.CreatePlaylistRequest{
			ID:     fmt.Sprintf("pls_%d", i),
			Name:   fmt.Sprintf("Playlist %d", i),
			UserID: "usr_1",
		})
		if err != nil {
			t.Fatalf("create playlist %d: %v", i, err)
		}
		ids = append(ids, playlist.ID)
		clk.Advance(time.Minute)
	}

	// pls_0 gets 3 likes, pls_1 two, pls_2 one
	for i, likeCount := range []int{3, 2, 1} {
		for u := 0; u < likeCount; u++ {
			if _, err := reactionSvc.React(ctx, reactiondomain.ReactRequest{
				EntityType: reactiondomain.EntityPlaylist,
				EntityID:   ids[i],
				UserID:     fmt.Sprintf("usr_%d", u),
				Type:       reactiondomain.ReactionLike,
			}); err != nil {
				t.Fatalf("react %s: %v", ids[i], err)
			}
		}
	}

	madeForYou, err := svc.MadeForYou(ctx)
	if err != nil {
		t.Fatalf("made for you: %v", err)
	}
	if len(madeForYou) != 5 {
		t.Fatalf("expected top 5, got %d", len(madeForYou))
	}
	if madeForYou[0].ID != "pls_0" || madeForYou[0].LikesCount != 3 {
		t.Fatalf("unexpected top entry: %+v", madeForYou[0])
	}
	if madeForYou[1].ID != "pls_1" || madeForYou[2].ID != "pls_2" {
		t.Fatalf("unexpected like ordering: %s, %s", madeForYou[1].ID, madeForYou[2].ID)
	}

	recent, err := svc.RecentlyUsed(ctx)
	if err != nil {
		t.Fatalf("recently used: %v", err)
	}
	if len(recent) != 5 {
		t.Fatalf("expected top 5, got %d", len(recent))
	}
	if recent[0].ID != "pls_6" || recent[4].ID != "pls_2" {
		t.Fatalf("unexpected recency ordering: first=%s last=%s", recent[0].ID, recent[4].ID)
	}
}

func setupPlaylistService(t *testing.T) (playlistdomain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	_ = db.Exec("PRAGMA busy_timeout = 5000").Error
	preparePlaylistSchema(t, db)

	node, err := snowflake.NewNode(4)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC))

	svc := NewService(ServiceParam{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clk,
		ReactionSvc: newReactionService(t, db, clk),
	})
	return svc, db, clk
}

func newReactionService(t *testing.T, db *gorm.DB, clk *clock.FakeClock) reactiondomain.Service {
	t.Helper()
	node, err := snowflake.NewNode(5)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return reactionservice.NewService(reactionservice.ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
	})
}

func preparePlaylistSchema(t *testing.T, db *gorm.DB) {
	t.Helper()
	statements := []string{
		`CREATE TABLE families (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT NOT NULL,
			file_key TEXT,
			preview_image_key TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE playlists (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			user_id TEXT NOT NULL,
			preview_image_key TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE playlist_families (
			id BIGINT PRIMARY KEY,
			playlist_id TEXT NOT NULL,
			family_id TEXT NOT NULL,
			sort_order INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX uq_playlist_family ON playlist_families (playlist_id, family_id)`,
		`CREATE TABLE reaction_records (
			id BIGINT PRIMARY KEY,
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			type TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX uq_reaction_entity_user ON reaction_records (entity_type, entity_id, user_id)`,
	}
	for _, statement := range statements {
		if err := db.Exec(statement).Error; err != nil {
			t.Fatalf("prepare schema: %v", err)
		}
	}
}

func seedFamily(t *testing.T, db *gorm.DB, id, name string) {
	t.Helper()
	now := time.Now().UTC()
	if err := db.Exec(
		`INSERT INTO families (id, name, category, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, name, "Doors", now, now,
	).Error; err != nil {
		t.Fatalf("seed family: %v", err)
	}
}
