package model

import (
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

type Address struct {
	Street  string `bson:"street,omitempty" json:"street,omitempty"`
	City    string `bson:"city,omitempty" json:"city,omitempty"`
	ZipCode string `bson:"zipCode,omitempty" json:"zipCode,omitempty"`
}

type User struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name                string             `bson:"name" json:"name"`
	Email               string             `bson:"email" json:"email"`
	Password            string             `bson:"password" json:"-"`
	Role                string             `bson:"role" json:"role"`
	Phone               string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Address             Address            `bson:"address,omitempty" json:"address"`
	Avatar              string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
	AvatarID            string             `bson:"avatarId,omitempty" json:"-"`
	IsActive            bool               `bson:"isActive" json:"isActive"`
	ResetPasswordToken  string             `bson:"resetPasswordToken,omitempty" json:"-"`
	ResetPasswordExpire time.Time          `bson:"resetPasswordExpire,omitempty" json:"-"`
	LastLogin           time.Time          `bson:"lastLogin" json:"lastLogin"`
	CreatedAt           time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// NormalizeEmail lower-cases and trims an email for the unique index.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// Validate returns every violated profile constraint, not just the
// first. The password is checked separately with ValidatePassword
// because only the hash is stored.
func (u *User) Validate() []string {
	var msgs []string
	if strings.TrimSpace(u.Name) == "" {
		msgs = append(msgs, "name is required")
	} else if len(u.Name) > 50 {
		msgs = append(msgs, "name cannot exceed 50 characters")
	}
	if u.Email == "" {
		msgs = append(msgs, "email is required")
	} else if !emailPattern.MatchString(u.Email) {
		msgs = append(msgs, "email is not valid")
	}
	return msgs
}

// ValidatePassword checks a raw password before it is hashed.
func ValidatePassword(raw string) []string {
	if raw == "" {
		return []string{"password is required"}
	}
	if len(raw) < 6 {
		return []string{"password must be at least 6 characters"}
	}
	return nil
}
