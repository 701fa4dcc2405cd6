package models

// AccountType is the stored account type.
type AccountType string

// Account is the row shape of the accounts table.
// Balance is kept in minor units.
type Account struct {
	AccountID   string      `db:"account_id"`
	OwnerID     string      `db:"owner_id"`
	Name        string      `db:"name"`
	AccountType AccountType `db:"account_type"`
	Balance     int64       `db:"balance"`
	CreditLimit int64       `db:"credit_limit"`
	ClosingDay  int         `db:"closing_day"` // 0 when the account has no billing cycle
	DueDay      int         `db:"due_day"`
	AuditFields
}

// Category is the row shape of the categories table.
type Category struct {
	CategoryID string `db:"category_id"`
	OwnerID    string `db:"owner_id"`
	Name       string `db:"name"`
}
