package model

import "time"

const TableUser = "users"

type User struct {
	ID            uint64    `gorm:"primaryKey" json:"id"`
	WalletAddress string    `gorm:"uniqueIndex; not null; comment:Normalized account address" json:"wallet_address"`
	Username      string    `gorm:"uniqueIndex; not null" json:"username"`
	Email         *string   `gorm:"uniqueIndex" json:"email,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (User) TableName() string {
	return TableUser
}
