package domain

// ZoneDraft carries caller input for zone creation.
type ZoneDraft struct {
	Name       string `json:"name" validate:"required,max=253,dns_name"`
	Nameserver string `json:"nameserver" validate:"required,max=253,dns_name"`
}

// RecordDraft carries caller input for record creation.
type RecordDraft struct {
	Name  string `json:"name" validate:"required,max=253"`
	Type  string `json:"type" validate:"required"`
	Value string `json:"value" validate:"required,max=253"`
	Token string `json:"token" validate:"omitempty,max=128,printascii"`
}

// RecordUpdate carries caller input for a record update. Type and name are immutable.
type RecordUpdate struct {
	Value string `json:"value" validate:"required,max=253"`
	Token string `json:"token" validate:"omitempty,max=128,printascii"`
}
