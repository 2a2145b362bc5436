package seed

import (
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// EnsureAdmin creates the initial login user when the users table is
// empty. Without it a fresh install has no way to sign in.
func EnsureAdmin(db *sqlx.DB, email, password string, log *zap.Logger) {
	if email == "" || password == "" {
		return
	}

	var count int
	if err := db.Get(&count, `SELECT COUNT(*) FROM users`); err != nil {
		log.Warn("unable to inspect users table", zap.Error(err))
		return
	}
	if count > 0 {
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Warn("unable to hash admin password", zap.Error(err))
		return
	}
	if _, err := db.Exec(`INSERT INTO users (name, email, password) VALUES ($1, $2, $3)`,
		"Administrator", email, string(hashed)); err != nil {
		log.Warn("unable to seed admin user", zap.Error(err))
		return
	}
	log.Info("seeded initial admin user", zap.String("email", email))
}
