package database

import (
	"scenario-annotator/database/model"
	"scenario-annotator/logger"
	"scenario-annotator/web/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Registry stores the user table in the database opened by InitDB.
type Registry struct{}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Load() map[string]entity.User {
	users := make(map[string]entity.User)
	if db == nil {
		logger.Warning("user registry read before database init")
		return users
	}
	var rows []model.User
	if err := db.Model(model.User{}).Find(&rows).Error; err != nil {
		logger.Warning("load users failed:", err)
		return users
	}
	for _, row := range rows {
		u := entity.User{
			Username:       row.Username,
			RegisteredAt:   entity.Timestamp{Time: row.RegisteredAt},
			NormalizedName: row.NormalizedName,
			LoginCount:     row.LoginCount,
		}
		if row.LastLogin != nil {
			u.LastLogin = entity.NewTimestamp(*row.LastLogin)
		}
		users[row.NormalizedName] = u
	}
	return users
}

// Save makes the table equal to users in one transaction.
func (r *Registry) Save(users map[string]entity.User) bool {
	if db == nil {
		logger.Error("user registry saved before database init")
		return false
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		keys := make([]string, 0, len(users))
		for key, u := range users {
			keys = append(keys, key)
			row := model.User{
				NormalizedName: key,
				Username:       u.Username,
				RegisteredAt:   u.RegisteredAt.Time,
				LoginCount:     u.LoginCount,
			}
			if u.LastLogin != nil {
				t := u.LastLogin.Time
				row.LastLogin = &t
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "normalized_name"}},
				DoUpdates: clause.AssignmentColumns([]string{"username", "registered_at", "login_count", "last_login"}),
			}).Create(&row).Error
			if err != nil {
				return err
			}
		}

		stale := tx.Model(model.User{})
		if len(keys) > 0 {
			stale = stale.Where("normalized_name NOT IN ?", keys)
		} else {
			stale = stale.Where("1 = 1")
		}
		return stale.Delete(&model.User{}).Error
	})
	if err != nil {
		logger.Error("save users failed:", err)
		return false
	}
	return true
}
