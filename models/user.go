package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mmdatafocus/maestro_backend/consensus"
	"github.com/mmdatafocus/maestro_backend/utils"
	"gorm.io/gorm"
)

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Email     string    `gorm:"size:100;not null;uniqueIndex" json:"email"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	Role      UserRole  `gorm:"size:1;not null;default:E" json:"role"`
	Branch    string    `gorm:"size:100" json:"branch"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Email    string   `json:"email" binding:"required,email"`
	Name     string   `json:"name" binding:"required"`
	Password string   `json:"password" binding:"required,min=8"`
	Role     UserRole `json:"role" binding:"required,oneof=A E"`
	Branch   string   `json:"branch"`
}

func (result *User) PrepareGive() {
	result.Password = ""
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Authenticate checks credentials. Unknown users, disabled users and wrong
// passwords return the same error.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := utils.ComparePassword(user.Password, password); err != nil {
		return nil, err
	}
	if !utils.DereferencePtr(user.IsActive) {
		return nil, utils.ErrorInvalidCredentials
	}
	user.PrepareGive()
	return &user, nil
}

func (s *Store) GetUser(ctx context.Context, id int) (*User, error) {
	user, err := utils.FetchSingleModel[User](ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	user.PrepareGive()
	return user, nil
}

// CreateUser adds an employee or admin account.
func (s *Store) CreateUser(ctx context.Context, input *NewUser) (*User, error) {
	email := normalizeEmail(input.Email)
	if !utils.IsValidEmail(email) {
		return nil, consensus.NewValidationError(input.Email, "invalid email")
	}
	if !input.Role.IsValid() {
		return nil, consensus.NewValidationError(string(input.Role), "invalid role")
	}
	if err := utils.ValidateUnique[User](ctx, s.db, "email", email, nil); err != nil {
		if errors.Is(err, utils.ErrorDuplicate) {
			return nil, consensus.NewInvalidStateError(email, "email already registered")
		}
		return nil, err
	}
	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	user := User{
		Email:    email,
		Name:     strings.TrimSpace(input.Name),
		Password: string(hashed),
		Role:     input.Role,
		Branch:   strings.TrimSpace(input.Branch),
		IsActive: utils.NewTrue(),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return createHistory(tx, HistoryActionCreate, 0, email, "user", nil, map[string]string{"email": email, "role": string(user.Role)}, "user "+email+" created")
	})
	if err != nil {
		return nil, err
	}
	user.PrepareGive()
	return &user, nil
}

// UpsertAdmin creates the admin account or resets its password.
func (s *Store) UpsertAdmin(ctx context.Context, email, name, password string) (*User, bool, error) {
	email = normalizeEmail(email)
	if !utils.IsValidEmail(email) {
		return nil, false, consensus.NewValidationError(email, "invalid email")
	}
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, false, err
	}
	var user User
	err = s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = User{
			Email:    email,
			Name:     name,
			Password: string(hashed),
			Role:     UserRoleAdmin,
			IsActive: utils.NewTrue(),
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, false, err
		}
		user.PrepareGive()
		return &user, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	if err := s.db.WithContext(ctx).Model(&user).Updates(map[string]interface{}{
		"password":  string(hashed),
		"role":      UserRoleAdmin,
		"is_active": true,
	}).Error; err != nil {
		return nil, false, err
	}
	user.PrepareGive()
	return &user, false, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]*User, error) {
	users, err := utils.FetchAllModels[User](ctx, s.db, "email ASC")
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		u.PrepareGive()
	}
	return users, nil
}
