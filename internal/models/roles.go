package models

const (
	CustomerRole = "Customer"
	AdminRole    = "Admin"
)

type Role struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	NormalizedName string `json:"-"`
}
