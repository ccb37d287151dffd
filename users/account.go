package users

import "strings"

// AccountType classifies a profile. Anything the backend sends that is not
// recognised is treated as AccountUser.
type AccountType string

const (
	AccountUser     AccountType = "USER"
	AccountBusiness AccountType = "BUSINESS"
)

// ParseAccountType normalises a backend account type case-insensitively.
func ParseAccountType(s string) AccountType {
	if strings.EqualFold(strings.TrimSpace(s), string(AccountBusiness)) {
		return AccountBusiness
	}
	return AccountUser
}

// Account is either Personal or Business.
type Account interface {
	Type() AccountType
	isAccount()
}

type Personal struct{}

func (Personal) Type() AccountType { return AccountUser }
func (Personal) isAccount()        {}

// Business carries the fields only business accounts have.
type Business struct {
	Name        string `json:"businessName"`
	WebsiteURL  string `json:"websiteUrl"`
	Description string `json:"description"`
}

func (Business) Type() AccountType { return AccountBusiness }
func (Business) isAccount()        {}

// NewAccount builds the account variant for t.
func NewAccount(t AccountType, business Business) Account {
	if t == AccountBusiness {
		return business
	}
	return Personal{}
}
