package models

import "time"

// UserType is the role an application user signs in as.
type UserType string

const (
	UserTypeCustomer   UserType = "customer"
	UserTypeRestaurant UserType = "restaurant"
	UserTypeAdmin      UserType = "admin"
)

// LoginSource tags where a login attempt was started from. Empty means absent.
type LoginSource string

const (
	SourceWeb    LoginSource = "web"
	SourceMobile LoginSource = "mobile"
)

// Valid reports whether s is empty or one of the known sources.
func (s LoginSource) Valid() bool {
	return s == "" || s == SourceWeb || s == SourceMobile
}

// User represents an application user, keyed by the identity provider's subject id.
type User struct {
	UID            string    `bson:"_id" json:"uid"`
	Name           string    `bson:"name" json:"name"`
	Email          string    `bson:"email" json:"email"`
	PhotoURL       *string   `bson:"photoURL,omitempty" json:"photoURL"`
	UserType       UserType  `bson:"userType" json:"userType"`
	SetupCompleted *bool     `bson:"setupCompleted,omitempty" json:"setupCompleted,omitempty"`
	RestaurantName *string   `bson:"restaurantName,omitempty" json:"restaurantName,omitempty"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) GetID() string                        { return u.UID }
func (u *User) SetID(id string)                      { u.UID = id }
func (u *User) SearchKey() string                    { return u.Name }
func (u *User) Timestamps() (*time.Time, *time.Time) { return &u.CreatedAt, &u.UpdatedAt }

// Clone returns a deep copy so callers can't mutate shared session state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.PhotoURL != nil {
		v := *u.PhotoURL
		c.PhotoURL = &v
	}
	if u.SetupCompleted != nil {
		v := *u.SetupCompleted
		c.SetupCompleted = &v
	}
	if u.RestaurantName != nil {
		v := *u.RestaurantName
		c.RestaurantName = &v
	}
	return &c
}
