package migration

import (
	"strings"

	"github.com/revitfy/revitfy/internal/config"
	familydomain "github.com/revitfy/revitfy/internal/family/domain"
	identitydomain "github.com/revitfy/revitfy/internal/identity/domain"
	playlistdomain "github.com/revitfy/revitfy/internal/playlist/domain"
	projectdomain "github.com/revitfy/revitfy/internal/project/domain"
	reactiondomain "github.com/revitfy/revitfy/internal/reaction/domain"
	"github.com/revitfy/revitfy/internal/seed"
	usagedomain "github.com/revitfy/revitfy/internal/usage/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if strings.EqualFold(cfg.DBType, "postgres") {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// The embedded migrations are written for postgres; other
			// dialects are schema-managed from the models.
			err := conn.AutoMigrate(
				&identitydomain.User{},
				&identitydomain.Session{},
				&projectdomain.Project{},
				&familydomain.Family{},
				&familydomain.FamilyType{},
				&usagedomain.UsageRecord{},
				&usagedomain.TypeUsageRecord{},
				&reactiondomain.ReactionRecord{},
				&playlistdomain.Playlist{},
				&playlistdomain.PlaylistFamily{},
			)
			if err != nil {
				return err
			}
		}

		return seed.EnsureDefaultUser(conn)
	}),
)
