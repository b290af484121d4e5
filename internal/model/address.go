package model

// Address is the postal location shared by companies, registration requests
// and job posts
type Address struct {
	AddressLine1 *string `gorm:"type:text" json:"address_line1,omitempty"`
	Ward         *string `gorm:"type:text" json:"ward,omitempty"`
	District     *string `gorm:"type:text" json:"district,omitempty"`
	City         *string `gorm:"type:text" json:"city,omitempty"`
	Province     *string `gorm:"type:text" json:"province,omitempty"`
}
