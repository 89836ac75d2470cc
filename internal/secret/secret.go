// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package secret

import "os"

// GetEnv returns the value of the environment variable named by the key,
// or fallback if the variable is not present.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// EncryptionKey is the base64 AES key used to seal stored credentials.
func EncryptionKey() string {
	return GetEnv("INTEGRATIONHUB_ENCRYPTION_KEY", "")
}

// ManagementKey is the management API secret.
func ManagementKey() string {
	return GetEnv("INTEGRATIONHUB_MANAGEMENT_KEY", "")
}

// Postgres store
func PostgresDSN() string {
	return GetEnv("PGSTORE_DSN", "")
}

func RedisPassword() string {
	return GetEnv("REDISSTORE_PASSWORD", "")
}

// Object store credentials
func ObjectStoreAccessKey() string {
	return GetEnv("OBJECTSTORE_ACCESS_KEY", "")
}

func ObjectStoreSecretKey() string {
	return GetEnv("OBJECTSTORE_SECRET_KEY", "")
}
