package identity

import (
	"database/sql"

	"sesi/pkg/logger"
)

// Identity is the resolved user attached to authenticated requests.
// Sensitive columns (password hash, refresh token) are never selected.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Directory struct {
	DB *sql.DB
}

func NewDirectory(db *sql.DB) *Directory {
	return &Directory{DB: db}
}

// Lookup returns the identity for a user id, or sql.ErrNoRows when the user
// no longer exists. A valid token for a deleted user must not authenticate.
func (d *Directory) Lookup(userID string) (*Identity, error) {
	var ident Identity
	err := d.DB.QueryRow("SELECT id, name, email FROM users WHERE id = $1", userID).
		Scan(&ident.ID, &ident.Name, &ident.Email)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Sugar.Errorf("Failed to look up user %s: %v", userID, err)
		}
		return nil, err
	}
	return &ident, nil
}
