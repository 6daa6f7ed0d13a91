// Package domain contains core concepts of the messenger.
// This file defines User entities.
// No runtime, network, or UI logic should be added here.
package domain

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
