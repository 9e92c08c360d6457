package entities

type Status struct {
	ID   int64  `json:"status_id"`
	Name string `json:"status"`
}

type Role struct {
	ID   int    `json:"role_id"`
	Name string `json:"role"`
}
