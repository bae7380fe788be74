package identity

import (
	"github.com/shiksha-labs/shiksha-api/model"
	"github.com/shiksha-labs/shiksha-api/utils/validation"
	"gorm.io/gorm"
)

// FindUserByPhone resolves a user from an input phone string. Candidates
// are tried in priority order to tolerate rows written before phones were
// normalized; first match wins.
func FindUserByPhone(db *gorm.DB, phone string) (*model.User, error) {
	for _, candidate := range validation.PhoneCandidates(phone) {
		var user model.User
		err := db.Where("phone = ?", candidate).First(&user).Error
		if err == nil {
			return &user, nil
		}
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// FindUserByPhoneAndRole resolves a user with the given role.
func FindUserByPhoneAndRole(db *gorm.DB, phone, role string) (*model.User, error) {
	user, err := FindUserByPhone(db, phone)
	if err != nil {
		return nil, err
	}
	if user.Role != role {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}
