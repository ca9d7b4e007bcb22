package models

import "time"

// RegistrationFields holds the payload a worshipper submits on the transport form.
// JSON names match the attribute names in the document store collection.
type RegistrationFields struct {
	FullName              string `json:"fullName"`
	Location              string `json:"location"`
	PhoneNumber           string `json:"phoneNumber"`
	WorshippersToChurch   int    `json:"worshippersToChurch"`
	WorshippersFromChurch int    `json:"worshippersFromChurch"`
}

// Registration represents a transport registration stored in the document store
type Registration struct {
	ID string `json:"id"`
	RegistrationFields
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	// SignedOut is set when the record was updated after creation,
	// which only the sign-out form does.
	SignedOut bool `json:"signedOut"`
}

// Created returns the creation timestamp
func (r Registration) Created() time.Time {
	return r.CreatedAt
}

// SignOutFields holds the fields changed by a sign-out update
type SignOutFields struct {
	WorshippersFromChurch int `json:"worshippersFromChurch"`
}

// WalletFields holds the payload of the wallet-address form
type WalletFields struct {
	WalletAddress string `json:"walletAddress"`
}

// WalletAddress represents a submitted wallet address awaiting automatic deletion
type WalletAddress struct {
	ID string `json:"id"`
	WalletFields
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Created returns the creation timestamp
func (w WalletAddress) Created() time.Time {
	return w.CreatedAt
}

// Page is a window over a sorted list of items
type Page[T any] struct {
	Items      []T  `json:"items"`
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasPrev    bool `json:"hasPrev"`
	HasNext    bool `json:"hasNext"`
}
