package core

import "time"

// Session represents an authenticated wallet session
type Session struct {
	ID            string    // Unique session identifier
	Address       string    // Wallet address of the user
	IssuedAt      time.Time // When the session was created
	RefreshExpiry time.Time // When the refresh capability expires
	AccessExpiry  time.Time // When the access capability expires
	RefreshID     string    // Unique identifier for the refresh token
}
