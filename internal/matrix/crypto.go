// ABOUTME: End-to-end encryption for the bot's Matrix account
// ABOUTME: mautrix cryptohelper on a per-user SQLite database, reset when the device ID changes

package matrix

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/crypto/cryptohelper"
)

// Crypto owns the E2EE helper attached to a client.
type Crypto struct {
	helper *cryptohelper.CryptoHelper
	logger *slog.Logger
}

// SetupCrypto enables E2EE on client, storing keys under dataDir. A recovery
// key additionally verifies the device for cross-signing; failing that is
// logged and encryption keeps working.
func SetupCrypto(ctx context.Context, client *mautrix.Client, recoveryKey, dataDir string, logger *slog.Logger) (*Crypto, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	userID := client.UserID.String()
	dbPath := filepath.Join(dataDir, fmt.Sprintf("matrix-crypto-%s.db", slugify(userID)))
	logger.Info("setting up encryption", "db", dbPath)

	if reset, err := deviceChanged(dbPath, client.DeviceID.String()); err != nil {
		logger.Debug("could not check device ID", "error", err)
	} else if reset {
		logger.Warn("device ID changed, resetting crypto database")
		if err := removeDatabase(dbPath); err != nil {
			return nil, err
		}
	}

	helper, err := cryptohelper.NewCryptoHelper(client, storeKey(userID), dbPath)
	if err != nil {
		return nil, fmt.Errorf("creating crypto helper: %w", err)
	}
	if err := helper.Init(ctx); err != nil {
		return nil, fmt.Errorf("initializing crypto helper: %w", err)
	}
	client.Crypto = helper

	c := &Crypto{helper: helper, logger: logger}
	if recoveryKey == "" {
		logger.Info("encryption initialized without cross-signing")
		return c, nil
	}

	if machine := helper.Machine(); machine == nil {
		logger.Warn("crypto machine not initialized, skipping verification")
	} else if err := machine.VerifyWithRecoveryKey(ctx, recoveryKey); err != nil {
		logger.Warn("recovery key verification failed", "error", err)
	} else {
		logger.Info("device verified with recovery key")
	}
	return c, nil
}

// Close releases the crypto database.
func (c *Crypto) Close() error {
	if c.helper != nil {
		return c.helper.Close()
	}
	return nil
}

// slugify turns a Matrix user ID into a file-name-safe string:
// @raketa:example.org -> raketa_example.org
func slugify(userID string) string {
	s := strings.TrimPrefix(userID, "@")
	var b strings.Builder
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '-', c == '_':
			b.WriteRune(c)
		case c == ':':
			b.WriteByte('_')
		}
	}
	return b.String()
}

// storeKey derives a per-user pickle key for the crypto store.
func storeKey(userID string) []byte {
	h := sha256.Sum256([]byte("raketa-crypto:" + userID))
	return h[:]
}

// deviceChanged reports whether an existing crypto database belongs to a
// different device than the current login.
func deviceChanged(dbPath, deviceID string) (bool, error) {
	if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return false, err
	}
	defer db.Close()

	var stored string
	err = db.QueryRow("SELECT device_id FROM crypto_account LIMIT 1").Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return stored != deviceID, nil
}

func removeDatabase(dbPath string) error {
	if err := os.Remove(dbPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing old crypto database: %w", err)
	}
	_ = os.Remove(dbPath + "-wal")
	_ = os.Remove(dbPath + "-shm")
	return nil
}
