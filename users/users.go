package users

import (
	"encoding/json"

	"github.com/jrsteele09/go-pin-client/internal/utils"
)

// Profile is the signed-in user's profile snapshot, denormalising the
// backend's user and business records.
type Profile struct {
	UserID      int64
	Name        string
	Username    string
	Email       string
	Mobile      string
	Bio         string
	ProfilePath string // server-relative media path
	Account     Account
}

func (p Profile) AccountType() AccountType {
	if p.Account == nil {
		return AccountUser
	}
	return p.Account.Type()
}

func (p Profile) IsBusiness() bool {
	return p.AccountType() == AccountBusiness
}

// Business returns the business fields, empty for personal accounts.
func (p Profile) Business() Business {
	if b, ok := p.Account.(Business); ok {
		return b
	}
	return Business{}
}

// Fields is the flat, loosely typed profile shape the backend returns.
type Fields struct {
	UserID       int64  `json:"userId,omitempty"`
	Name         string `json:"name"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Mobile       string `json:"mobile"`
	Bio          string `json:"bio"`
	ProfilePath  string `json:"profilePath"`
	AccountType  string `json:"accountType"`
	BusinessName string `json:"businessName"`
	WebsiteURL   string `json:"websiteUrl"`
	Description  string `json:"description"`
}

// Fields flattens the profile back into the backend shape.
func (p Profile) Fields() Fields {
	b := p.Business()
	return Fields{
		UserID:       p.UserID,
		Name:         p.Name,
		Username:     p.Username,
		Email:        p.Email,
		Mobile:       p.Mobile,
		Bio:          p.Bio,
		ProfilePath:  p.ProfilePath,
		AccountType:  string(p.AccountType()),
		BusinessName: b.Name,
		WebsiteURL:   b.WebsiteURL,
		Description:  b.Description,
	}
}

// Merge builds a profile from a server response, falling back to the
// previously cached profile for any field the server left empty.
// Precedence is server > fallback > "".
func Merge(server Fields, fallback Profile) Profile {
	prev := fallback.Fields()

	userID := server.UserID
	if userID == 0 {
		userID = fallback.UserID
	}

	accountType := ParseAccountType(utils.FirstNonEmpty(server.AccountType, prev.AccountType))
	business := Business{
		Name:        utils.FirstNonEmpty(server.BusinessName, prev.BusinessName),
		WebsiteURL:  utils.FirstNonEmpty(server.WebsiteURL, prev.WebsiteURL),
		Description: utils.FirstNonEmpty(server.Description, prev.Description),
	}

	return Profile{
		UserID:      userID,
		Name:        utils.FirstNonEmpty(server.Name, prev.Name),
		Username:    utils.FirstNonEmpty(server.Username, prev.Username),
		Email:       utils.FirstNonEmpty(server.Email, prev.Email),
		Mobile:      utils.FirstNonEmpty(server.Mobile, prev.Mobile),
		Bio:         utils.FirstNonEmpty(server.Bio, prev.Bio),
		ProfilePath: utils.FirstNonEmpty(server.ProfilePath, prev.ProfilePath),
		Account:     NewAccount(accountType, business),
	}
}

// FromFields is Merge without a cached fallback.
func FromFields(f Fields) Profile {
	return Merge(f, Profile{})
}

// MarshalJSON stores the profile in its flat StoredUser form.
func (p Profile) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Fields())
}

func (p *Profile) UnmarshalJSON(data []byte) error {
	var f Fields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*p = FromFields(f)
	return nil
}
