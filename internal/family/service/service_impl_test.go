package service

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/revitfy/revitfy/internal/clock"
	familydomain "github.com/revitfy/revitfy/internal/family/domain"
	reactiondomain "github.com/revitfy/revitfy/internal/reaction/domain"
	reactionservice "github.com/revitfy/revitfy/internal/reaction/service"
	usagedomain "github.com/revitfy/revitfy/internal/usage/domain"
	usagerepository "github.com/revitfy/revitfy/internal/usage/repository"
	usageservice "github.com/revitfy/revitfy/internal/usage/service"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	clk      *clock.FakeClock
	family   familydomain.Service
	usage    usagedomain.Service
	reaction reactiondomain.Service
}

func TestGetDetailAggregation(t *testing.T) {
	f := setupFamilyFixture(t)
	ctx := context.Background()
	now := f.clk.Now()

	city := "Rotterdam"
	seedProject(t, f.db, "prj_1", "Harbor Tower", &city)
	seedProject(t, f.db, "prj_2", "Station North", nil)

	family, err := f.family.Create(ctx, familydomain.CreateFamilyRequest{Name: "PWA_DOR_SingleSwing"})
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	seedFamilyType(t, f.db, "typ_1", family.ID, "900x2100")
	seedFamilyType(t, f.db, "typ_2", family.ID, "1000x2100")

	if _, err := f.usage.RecordUsage(ctx, usagedomain.RecordUsageRequest{
		FamilyID: family.ID, ProjectID: "prj_1", Count: 100, LastUsedAt: now.AddDate(0, 0, -5),
	}); err != nil {
		t.Fatalf("record prj_1: %v", err)
	}
	if _, err := f.usage.RecordUsage(ctx, usagedomain.RecordUsageRequest{
		FamilyID: family.ID, ProjectID: "prj_2", Count: 50, LastUsedAt: now.AddDate(0, 0, -40),
	}); err != nil {
		t.Fatalf("record prj_2: %v", err)
	}
	if _, err := f.usage.RecordTypeUsage(ctx, usagedomain.RecordTypeUsageRequest{
		FamilyTypeID: "typ_1", ProjectID: "prj_1", Count: 60, LastUsedAt: now.AddDate(0, 0, -5),
	}); err != nil {
		t.Fatalf("record type usage: %v", err)
	}

	for _, user := range []string{"usr_1", "usr_2"} {
		if _, err := f.reaction.React(ctx, reactiondomain.ReactRequest{
			EntityType: reactiondomain.EntityFamily, EntityID: family.ID, UserID: user, Type: reactiondomain.ReactionLike,
		}); err != nil {
			t.Fatalf("react %s: %v", user, err)
		}
	}
	if _, err := f.reaction.React(ctx, reactiondomain.ReactRequest{
		EntityType: reactiondomain.EntityFamily, EntityID: family.ID, UserID: "usr_3", Type: reactiondomain.ReactionDislike,
	}); err != nil {
		t.Fatalf("react dislike: %v", err)
	}

	detail, err := f.family.GetDetail(ctx, family.ID)
	if err != nil {
		t.Fatalf("get detail: %v", err)
	}

	if detail.Category != "Doors" {
		t.Fatalf("expected inferred category Doors, got %q", detail.Category)
	}
	if detail.UsageCount != 150 {
		t.Fatalf("expected usageCount 150, got %d", detail.UsageCount)
	}
	if detail.LikesCount != 2 || detail.DislikesCount != 1 {
		t.Fatalf("expected 2 likes / 1 dislike, got %d/%d", detail.LikesCount, detail.DislikesCount)
	}
	if detail.LastUsed != "5 days ago" {
		t.Fatalf("expected lastUsed '5 days ago', got %q", detail.LastUsed)
	}

	if len(detail.Types) != 2 {
		t.Fatalf("expected 2 types, got %d", len(detail.Types))
	}
	typeTotals := map[string]int64{}
	for _, typ := range detail.Types {
		typeTotals[typ.ID] = typ.UsageCount
	}
	if typeTotals["typ_1"] != 60 {
		t.Fatalf("expected typ_1 usage 60, got %d", typeTotals["typ_1"])
	}
	if typeTotals["typ_2"] != 0 {
		t.Fatalf("expected typ_2 usage 0, got %d", typeTotals["typ_2"])
	}

	stats := detail.UsageStatistics
	if len(stats.RelatedProjects) != 2 ||
		stats.RelatedProjects[0].ProjectID != "prj_1" || stats.RelatedProjects[0].UsedCount != 100 ||
		stats.RelatedProjects[1].ProjectID != "prj_2" || stats.RelatedProjects[1].UsedCount != 50 {
		t.Fatalf("unexpected relatedProjects: %+v", stats.RelatedProjects)
	}
	if len(stats.RelatedLocations) != 1 || stats.RelatedLocations[0].CityName != "Rotterdam" || stats.RelatedLocations[0].UsageCount != 100 {
		t.Fatalf("unexpected relatedLocations: %+v", stats.RelatedLocations)
	}
	if stats.RelatedPeriods.LastMonth != 100 {
		t.Fatalf("expected lastMonth 100, got %d", stats.RelatedPeriods.LastMonth)
	}
	if stats.RelatedPeriods.LastQuarter != 150 {
		t.Fatalf("expected lastQuarter 150, got %d", stats.RelatedPeriods.LastQuarter)
	}
	if stats.RelatedPeriods.LastYear != 150 {
		t.Fatalf("expected lastYear 150, got %d", stats.RelatedPeriods.LastYear)
	}
}

func TestGetDetailTruncatesProjectBreakdown(t *testing.T) {
	f := setupFamilyFixture(t)
	ctx := context.Background()
	now := f.clk.Now()

	family, err := f.family.Create(ctx, familydomain.CreateFamilyRequest{Name: "PWA_WAL_Partition"})
	if err != nil {
		t.Fatalf("create family: %v", err)
	}

	var total int64
	for i := 1; i <= 12; i++ {
		projectID := fmt.Sprintf("prj_%02d", i)
		seedProject(t, f.db, projectID, fmt.Sprintf("Project %02d", i), nil)
		count := int64(i)
		total += count
		if _, err := f.usage.RecordUsage(ctx, usagedomain.RecordUsageRequest{
			FamilyID: family.ID, ProjectID: projectID, Count: count, LastUsedAt: now,
		}); err != nil {
			t.Fatalf("record %s: %v", projectID, err)
		}
	}

	detail, err := f.family.GetDetail(ctx, family.ID)
	if err != nil {
		t.Fatalf("get detail: %v", err)
	}
	if len(detail.UsageStatistics.RelatedProjects) != 10 {
		t.Fatalf("expected 10 breakdown rows, got %d", len(detail.UsageStatistics.RelatedProjects))
	}
	// the top-level total still reflects all projects
	if detail.UsageCount != total {
		t.Fatalf("expected true total %d, got %d", total, detail.UsageCount)
	}
	var capped int64
	for _, row := range detail.UsageStatistics.RelatedProjects {
		capped += row.UsedCount
	}
	if detail.UsageCount < capped {
		t.Fatalf("total %d must cover the capped breakdown sum %d", detail.UsageCount, capped)
	}
}

func TestGetDetailRepeatedReadsMatch(t *testing.T) {
	f := setupFamilyFixture(t)
	ctx := context.Background()
	now := f.clk.Now()

	city := "Rotterdam"
	seedProject(t, f.db, "prj_1", "Harbor Tower", &city)
	seedProject(t, f.db, "prj_2", "Station North", nil)

	family, err := f.family.Create(ctx, familydomain.CreateFamilyRequest{Name: "PWA_DOR_SingleSwing"})
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	seedFamilyType(t, f.db, "typ_1", family.ID, "900x2100")

	if _, err := f.usage.RecordUsage(ctx, usagedomain.RecordUsageRequest{
		FamilyID: family.ID, ProjectID: "prj_1", Count: 100, LastUsedAt: now.AddDate(0, 0, -5),
	}); err != nil {
		t.Fatalf("record prj_1: %v", err)
	}
	if _, err := f.usage.RecordUsage(ctx, usagedomain.RecordUsageRequest{
		FamilyID: family.ID, ProjectID: "prj_2", Count: 50, LastUsedAt: now.AddDate(0, 0, -40),
	}); err != nil {
		t.Fatalf("record prj_2: %v", err)
	}
	if _, err := f.reaction.React(ctx, reactiondomain.ReactRequest{
		EntityType: reactiondomain.EntityFamily, EntityID: family.ID, UserID: "usr_1", Type: reactiondomain.ReactionLike,
	}); err != nil {
		t.Fatalf("react: %v", err)
	}

	first, err := f.family.GetDetail(ctx, family.ID)
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	second, err := f.family.GetDetail(ctx, family.ID)
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	// no intervening writes, the fake clock pins the window anchors
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated reads diverged:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestGetDetailNeverUsed(t *testing.T) {
	f := setupFamilyFixture(t)
	ctx := context.Background()

	family, err := f.family.Create(ctx, familydomain.CreateFamilyRequest{Name: "Unused_Fixture"})
	if err != nil {
		t.Fatalf("create family: %v", err)
	}

	detail, err := f.family.GetDetail(ctx, family.ID)
	if err != nil {
		t.Fatalf("get detail: %v", err)
	}
	if detail.LastUsed != "Never" {
		t.Fatalf("expected lastUsed Never, got %q", detail.LastUsed)
	}
	if detail.UsageCount != 0 || detail.LikesCount != 0 || detail.DislikesCount != 0 {
		t.Fatalf("expected zeroed counts, got %+v", detail)
	}
	if len(detail.UsageStatistics.RelatedProjects) != 0 {
		t.Fatalf("expected empty breakdown, got %+v", detail.UsageStatistics.RelatedProjects)
	}
}

func TestGetDetailNotFound(t *testing.T) {
	f := setupFamilyFixture(t)

	_, err := f.family.GetDetail(context.Background(), "fam_missing")
	if err != familydomain.ErrFamilyNotFound {
		t.Fatalf("expected family not found, got %v", err)
	}
}

func TestCreateDerivesIDAndCategory(t *testing.T) {
	f := setupFamilyFixture(t)
	ctx := context.Background()

	family, err := f.family.Create(ctx, familydomain.CreateFamilyRequest{Name: "PWA_WIN_Casement 600"})
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	if family.ID != "fam_pwa_win_casement_600" {
		t.Fatalf("unexpected derived id %q", family.ID)
	}
	if family.Category != "Windows" {
		t.Fatalf("expected Windows, got %q", family.Category)
	}

	_, err = f.family.Create(ctx, familydomain.CreateFamilyRequest{Name: "PWA_WIN_Casement 600"})
	if err != familydomain.ErrFamilyExists {
		t.Fatalf("expected conflict on duplicate create, got %v", err)
	}
}

func TestListFiltersByCategory(t *testing.T) {
	f := setupFamilyFixture(t)
	ctx := context.Background()

	for _, name := range []string{"PWA_DOR_A", "PWA_DOR_B", "PWA_WAL_C"} {
		if _, err := f.family.Create(ctx, familydomain.CreateFamilyRequest{Name: name}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	resp, err := f.family.List(ctx, familydomain.ListFamiliesRequest{Category: "Doors"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if resp.Total != 2 || len(resp.Families) != 2 {
		t.Fatalf("expected 2 doors, got total=%d len=%d", resp.Total, len(resp.Families))
	}
	for _, family := range resp.Families {
		if family.Category != "Doors" {
			t.Fatalf("unexpected category %q in filtered listing", family.Category)
		}
	}
}

func TestUpdatePreviewImage(t *testing.T) {
	f := setupFamilyFixture(t)
	ctx := context.Background()

	family, err := f.family.Create(ctx, familydomain.CreateFamilyRequest{Name: "PWA_FUR_Desk"})
	if err != nil {
		t.Fatalf("create family: %v", err)
	}

	updated, err := f.family.UpdatePreviewImage(ctx, family.ID, "previews/fam_pwa_fur_desk.png")
	if err != nil {
		t.Fatalf("update preview: %v", err)
	}
	if updated.PreviewImageKey == nil || *updated.PreviewImageKey != "previews/fam_pwa_fur_desk.png" {
		t.Fatalf("expected preview key persisted, got %v", updated.PreviewImageKey)
	}
}

func TestUpdatePatchesFields(t *testing.T) {
	f := setupFamilyFixture(t)
	ctx := context.Background()

	family, err := f.family.Create(ctx, familydomain.CreateFamilyRequest{Name: "PWA_DOR_Old"})
	if err != nil {
		t.Fatalf("create family: %v", err)
	}

	name := "PWA_DOR_Renamed"
	fileKey := "families/fam_pwa_dor_old.rfa"
	updated, err := f.family.Update(ctx, family.ID, familydomain.UpdateFamilyRequest{
		Name:    &name,
		FileKey: &fileKey,
	})
	if err != nil {
		t.Fatalf("update family: %v", err)
	}
	if updated.Name != "PWA_DOR_Renamed" {
		t.Fatalf("expected patched name, got %q", updated.Name)
	}
	// category untouched when not supplied
	if updated.Category != "Doors" {
		t.Fatalf("expected category unchanged, got %q", updated.Category)
	}
	if updated.FileKey == nil || *updated.FileKey != fileKey {
		t.Fatalf("expected file key persisted, got %v", updated.FileKey)
	}

	blank := "   "
	if _, err := f.family.Update(ctx, family.ID, familydomain.UpdateFamilyRequest{Name: &blank}); err != familydomain.ErrInvalidFamilyName {
		t.Fatalf("expected invalid name on blank update, got %v", err)
	}
}

func TestDeleteRemovesDependents(t *testing.T) {
	f := setupFamilyFixture(t)
	ctx := context.Background()
	now := f.clk.Now()

	seedProject(t, f.db, "prj_1", "Harbor Tower", nil)
	family, err := f.family.Create(ctx, familydomain.CreateFamilyRequest{Name: "PWA_DOR_Condemned"})
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	seedFamilyType(t, f.db, "typ_1", family.ID, "900x2100")

	if _, err := f.usage.RecordUsage(ctx, usagedomain.RecordUsageRequest{
		FamilyID: family.ID, ProjectID: "prj_1", Count: 10, LastUsedAt: now,
	}); err != nil {
		t.Fatalf("record usage: %v", err)
	}
	if _, err := f.usage.RecordTypeUsage(ctx, usagedomain.RecordTypeUsageRequest{
		FamilyTypeID: "typ_1", ProjectID: "prj_1", Count: 4, LastUsedAt: now,
	}); err != nil {
		t.Fatalf("record type usage: %v", err)
	}
	if _, err := f.reaction.React(ctx, reactiondomain.ReactRequest{
		EntityType: reactiondomain.EntityFamily, EntityID: family.ID, UserID: "usr_1", Type: reactiondomain.ReactionLike,
	}); err != nil {
		t.Fatalf("react: %v", err)
	}
	if err := f.db.Exec(
		`INSERT INTO playlist_families (id, playlist_id, family_id, sort_order, created_at) VALUES (?, ?, ?, ?, ?)`,
		1, "pls_1", family.ID, 0, now,
	).Error; err != nil {
		t.Fatalf("seed membership: %v", err)
	}

	if err := f.family.Delete(ctx, family.ID); err != nil {
		t.Fatalf("delete family: %v", err)
	}

	if _, err := f.family.Get(ctx, family.ID); err != familydomain.ErrFamilyNotFound {
		t.Fatalf("expected family gone, got %v", err)
	}
	for _, table := range []string{
		"families", "family_types", "usage_records", "type_usage_records", "reaction_records", "playlist_families",
	} {
		var count int64
		if err := f.db.Table(table).Count(&count).Error; err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if count != 0 {
			t.Fatalf("expected %s emptied, found %d rows", table, count)
		}
	}

	if err := f.family.Delete(ctx, family.ID); err != familydomain.ErrFamilyNotFound {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func setupFamilyFixture(t *testing.T) *fixture {
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
	prepareCatalogSchema(t, db)

	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC))

	usageSvc := usageservice.NewService(usageservice.ServiceParam{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clk,
		Ledger: usagerepository.ProvideLedger(),
	})
	reactionSvc := reactionservice.NewService(reactionservice.ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
	})
	familySvc := NewService(ServiceParam{
		DB:          db,
		Log:         zap.NewNop(),
		Clock:       clk,
		UsageSvc:    usageSvc,
		ReactionSvc: reactionSvc,
	})

	return &fixture{db: db, clk: clk, family: familySvc, usage: usageSvc, reaction: reactionSvc}
}

func prepareCatalogSchema(t *testing.T, db *gorm.DB) {
	t.Helper()
	statements := []string{
		`CREATE TABLE projects (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			city_name TEXT,
			location JSON,
			harvested_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE families (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT NOT NULL,
			file_key TEXT,
			preview_image_key TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE family_types (
			id TEXT PRIMARY KEY,
			family_id TEXT NOT NULL,
			name TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE usage_records (
			id BIGINT PRIMARY KEY,
			family_id TEXT NOT NULL,
			project_id TEXT NOT NULL,
			usage_count BIGINT NOT NULL,
			last_used DATETIME NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX uq_usage_family_project ON usage_records (family_id, project_id)`,
		`CREATE TABLE type_usage_records (
			id BIGINT PRIMARY KEY,
			family_type_id TEXT NOT NULL,
			project_id TEXT NOT NULL,
			usage_count BIGINT NOT NULL,
			last_used DATETIME NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX uq_type_usage_type_project ON type_usage_records (family_type_id, project_id)`,
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
		`CREATE TABLE playlist_families (
			id BIGINT PRIMARY KEY,
			playlist_id TEXT NOT NULL,
			family_id TEXT NOT NULL,
			sort_order INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX uq_playlist_family ON playlist_families (playlist_id, family_id)`,
	}
	for _, statement := range statements {
		if err := db.Exec(statement).Error; err != nil {
			t.Fatalf("prepare schema: %v", err)
		}
	}
}

func seedProject(t *testing.T, db *gorm.DB, id, name string, city *string) {
	t.Helper()
	now := time.Now().UTC()
	if err := db.Exec(
		`INSERT INTO projects (id, name, city_name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, name, city, now, now,
	).Error; err != nil {
		t.Fatalf("seed project: %v", err)
	}
}

func seedFamilyType(t *testing.T, db *gorm.DB, id, familyID, name string) {
	t.Helper()
	now := time.Now().UTC()
	if err := db.Exec(
		`INSERT INTO family_types (id, family_id, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, familyID, name, now, now,
	).Error; err != nil {
		t.Fatalf("seed family type: %v", err)
	}
}
