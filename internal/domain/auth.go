package domain

// SubjectType differentiates admin API token holders.
type SubjectType string

const (
	SubjectTypeAdmin SubjectType = "ADMIN"
)
