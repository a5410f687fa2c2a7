package domain

import "github.com/google/uuid"

const (
	walletCachePrefix       = "wallet:"
	transactionsCachePrefix = "wallet:transactions:"
	generationCachePrefix   = "wallet:gen:"
	versionCachePrefix      = "wallet:ver:"
)

// WalletCacheKey is the snapshot key for a wallet.
func WalletCacheKey(id uuid.UUID) string {
	return walletCachePrefix + id.String()
}

// TransactionsCacheKey is the history list key for a wallet.
func TransactionsCacheKey(id uuid.UUID) string {
	return transactionsCachePrefix + id.String()
}

// GenerationCacheKey holds the invalidation counter for a wallet's cache entries.
func GenerationCacheKey(id uuid.UUID) string {
	return generationCachePrefix + id.String()
}

// VersionCacheKey holds the highest wallet version ever installed in the cache.
// Invalidation leaves it in place.
func VersionCacheKey(id uuid.UUID) string {
	return versionCachePrefix + id.String()
}
