package models

import (
	"time"
)

// Setting is a process-wide key→value configuration row.
type Setting struct {
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Well-known setting keys.
const (
	SettingMainAdminID      = "main_admin_id"
	SettingAdminUsername    = "admin_username"
	SettingLinkedGroupID    = "linked_group_id"
	SettingLinkedGroupTitle = "linked_group_title"
	SettingCCPNumber        = "ccp_number"
	SettingBaridimobNumber  = "baridimob_number"
	SettingBaridiMoney      = "baridimoney_number"
	SettingBeneficiaryName  = "beneficiary_name"
)
