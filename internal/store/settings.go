package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
)

const (
	settingJWTSecret    = "jwt_secret"
	settingPasscodeHash = "passcode_hash"
)

// GetJWTSecret retrieves the JWT secret from the database.
// If no secret exists, it generates one, stores it, and returns it.
// Uses INSERT OR IGNORE + re-SELECT to avoid TOCTOU race on concurrent startup.
func GetJWTSecret(ctx context.Context, db *sql.DB) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	candidate := hex.EncodeToString(buf)

	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`,
		settingJWTSecret, candidate,
	)
	if err != nil {
		return "", fmt.Errorf("storing jwt_secret: %w", err)
	}

	secret, err := getSetting(ctx, db, settingJWTSecret)
	if err != nil {
		return "", err
	}
	return secret, nil
}

// GetPasscodeHash returns the bcrypt hash of the owner passcode, or "" if
// none has been set.
func GetPasscodeHash(ctx context.Context, db *sql.DB) (string, error) {
	return getSetting(ctx, db, settingPasscodeHash)
}

// SetPasscodeHash stores the bcrypt hash of the owner passcode.
func SetPasscodeHash(ctx context.Context, db *sql.DB, hash string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		settingPasscodeHash, hash,
	)
	if err != nil {
		return fmt.Errorf("storing passcode_hash: %w", err)
	}
	return nil
}

func getSetting(ctx context.Context, db *sql.DB, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying %s: %w", key, err)
	}
	return value, nil
}
