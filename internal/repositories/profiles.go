package repositories

import (
	"context"
	"errors"
	"slices"

	"github.com/maxaizer/tender-monitor/internal/entities"
	"gorm.io/gorm"
)

type Profiles struct {
	db *gorm.DB
}

func NewProfilesRepository(db *gorm.DB) *Profiles {
	return &Profiles{db: db}
}

func (repo *Profiles) Add(ctx context.Context, profile entities.MonitoringProfile) error {
	return repo.db.WithContext(ctx).Create(&profile).Error
}

func (repo *Profiles) GetByName(ctx context.Context, name string) (*entities.MonitoringProfile, error) {
	var profile entities.MonitoringProfile
	if err := repo.db.WithContext(ctx).First(&profile, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

func (repo *Profiles) GetActive(ctx context.Context) ([]entities.MonitoringProfile, error) {
	var profiles []entities.MonitoringProfile
	if err := repo.db.WithContext(ctx).Where("active = ?", true).Order("name").Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (repo *Profiles) List(ctx context.Context) ([]entities.MonitoringProfile, error) {
	var profiles []entities.MonitoringProfile
	if err := repo.db.WithContext(ctx).Order("name").Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (repo *Profiles) SetActive(ctx context.Context, name string, active bool) (bool, error) {
	res := repo.db.WithContext(ctx).Model(&entities.MonitoringProfile{}).
		Where("name = ?", name).
		Update("active", active)
	return res.RowsAffected > 0, res.Error
}

func (repo *Profiles) Remove(ctx context.Context, name string) error {
	return repo.db.WithContext(ctx).Delete(&entities.MonitoringProfile{}, "name = ?", name).Error
}

// AddTelegramChat subscribes a chat to a profile's digests. It reports false
// when the profile does not exist.
func (repo *Profiles) AddTelegramChat(ctx context.Context, name string, chatID int64) (bool, error) {
	return repo.updateTelegramChats(ctx, name, func(chats []int64) []int64 {
		if slices.Contains(chats, chatID) {
			return chats
		}
		return append(chats, chatID)
	})
}

func (repo *Profiles) RemoveTelegramChat(ctx context.Context, name string, chatID int64) (bool, error) {
	return repo.updateTelegramChats(ctx, name, func(chats []int64) []int64 {
		return slices.DeleteFunc(chats, func(id int64) bool { return id == chatID })
	})
}

func (repo *Profiles) updateTelegramChats(ctx context.Context, name string, update func([]int64) []int64) (bool, error) {
	found := false
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var profile entities.MonitoringProfile
		if err := tx.First(&profile, "name = ?", name).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		found = true
		profile.TelegramChatIDs = update(profile.TelegramChatIDs)
		return tx.Save(&profile).Error
	})
	return found, err
}
