package model

import (
	"sort"
	"time"
)

type Account struct {
	ID                  string
	Username            string
	Email               string
	PasswordHash        string
	VerifyCode          string
	VerifyCodeExpiry    time.Time
	IsVerified          bool
	IsAcceptingMessages bool
	Messages            []Message
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type Message struct {
	ID        string    `json:"_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// AccountView is the client facing shape of an account.
type AccountView struct {
	ID                  string    `json:"_id"`
	Username            string    `json:"username"`
	Email               string    `json:"email"`
	IsVerified          bool      `json:"isVerified"`
	IsAcceptingMessages bool      `json:"isAcceptingMessages"`
	CreatedAt           time.Time `json:"createdAt"`
}

func (a *Account) View() AccountView {
	return AccountView{
		ID:                  a.ID,
		Username:            a.Username,
		Email:               a.Email,
		IsVerified:          a.IsVerified,
		IsAcceptingMessages: a.IsAcceptingMessages,
		CreatedAt:           a.CreatedAt,
	}
}

// SortMessages returns msgs newest first. msgs must be in insertion order;
// equal timestamps keep reverse insertion order.
func SortMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[len(msgs)-1-i] = m
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// PublicProfile is what an anonymous visitor may learn about a recipient.
type PublicProfile struct {
	Username            string `json:"username"`
	IsAcceptingMessages bool   `json:"isAcceptingMessages"`
}
