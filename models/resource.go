package models

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// TypeLink is the type id of every resource built from message embeds.
const TypeLink = 10

type Resource struct {
	ID          uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	UserID      string `gorm:"column:user_id;index:ix_resources_user" json:"user_id"`
	ChannelID   string `gorm:"column:channel_id" json:"channel_id"`
	URL         string `gorm:"column:url;type:varchar(255)" json:"url"`
	Description string `gorm:"column:description;type:text;index:ix_resources_description" json:"description"`
	TypeID      int32  `gorm:"column:type_id;index:ix_resources_type" json:"type_id,omitempty"`
	Shash       string `gorm:"column:shash;type:varchar(32)" json:"shash,omitempty"` // fingerprint of Description, see Fingerprint
}

func (r Resource) TableName() string {
	return "resources"
}

// Insertable reports whether the resource carries both a url and a description.
func (r Resource) Insertable() bool {
	return r.URL != "" && r.Description != ""
}

// Fingerprint returns the decimal form of the 64-bit xxhash of s.
// Equal strings always produce equal fingerprints.
func Fingerprint(s string) string {
	return strconv.FormatUint(xxhash.Sum64String(s), 10)
}

type Channel struct {
	ID        uint64 `gorm:"column:pk_channels;primaryKey;autoIncrement" json:"-"`
	ChannelID int64  `gorm:"column:channel_id;index:ix_channels_channel" json:"channel_id"`
	Type      int32  `gorm:"column:type" json:"type"`
}

func (c Channel) TableName() string {
	return "channels"
}

type ResourceType struct {
	Type     int32  `gorm:"column:type;primaryKey;autoIncrement:false" json:"type"`
	TypeName string `gorm:"column:type_name;type:varchar(255)" json:"type_name"`
}

func (t ResourceType) TableName() string {
	return "types"
}
