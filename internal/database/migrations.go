package database

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,

	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL,
		avatar_url VARCHAR(500),
		provider VARCHAR(50) NOT NULL,
		provider_id VARCHAR(255) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(provider, provider_id)
	)`,

	`CREATE TABLE IF NOT EXISTS organizations (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(255) NOT NULL,
		owner_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS organization_members (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		organization_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		role VARCHAR(50) NOT NULL DEFAULT 'member',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(organization_id, user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token_hash VARCHAR(255) NOT NULL UNIQUE,
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'personal_secret_type') THEN
			CREATE TYPE personal_secret_type AS ENUM ('WEB_LOGIN', 'CREDITCARD', 'SECURE_NOTE');
		END IF;
	END $$`,

	// Ciphertext, IV and auth tag are opaque base64 strings produced by the client.
	`CREATE TABLE IF NOT EXISTS personal_secrets (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		organization_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
		secret_type personal_secret_type NOT NULL,
		secret_name_cipher TEXT NOT NULL,
		secret_name_iv TEXT NOT NULL,
		secret_name_auth_tag TEXT NOT NULL,
		secret_value_cipher TEXT NOT NULL,
		secret_value_iv TEXT NOT NULL,
		secret_value_auth_tag TEXT NOT NULL,
		algorithm VARCHAR(50) NOT NULL DEFAULT 'aes-256-gcm',
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_organization_members_organization_id ON organization_members(organization_id)`,
	`CREATE INDEX IF NOT EXISTS idx_organization_members_user_id ON organization_members(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user_id ON refresh_tokens(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_personal_secrets_owner ON personal_secrets(organization_id, user_id)`,
}

func (db *DB) Migrate(ctx context.Context) error {
	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
