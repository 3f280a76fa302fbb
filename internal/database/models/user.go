package models

type Subscription string

const (
	SubscriptionStarter  Subscription = "starter"
	SubscriptionPro      Subscription = "pro"
	SubscriptionBusiness Subscription = "business"
)

// Subscriptions lists every valid tier.
var Subscriptions = []Subscription{SubscriptionStarter, SubscriptionPro, SubscriptionBusiness}

type User struct {
	Base
	Email        string       `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string       `gorm:"not null" json:"-"`
	Subscription Subscription `gorm:"type:varchar(16);default:'starter'" json:"subscription"`
	AvatarURL    string       `json:"avatarURL"`

	// Token is the last bearer token issued at login. Requests presenting
	// any other token are rejected, so overwriting or clearing it revokes
	// every earlier session.
	Token *string `json:"-"`

	Verify            bool    `gorm:"default:false" json:"verify"`
	VerificationToken *string `gorm:"uniqueIndex" json:"-"`

	Contacts []Contact `gorm:"foreignKey:OwnerID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// HasSession reports whether token is the user's current session token.
func (u *User) HasSession(token string) bool {
	return u.Token != nil && token != "" && *u.Token == token
}
