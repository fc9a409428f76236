package db

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect opens the Postgres pool and applies the schema.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE TABLE IF NOT EXISTS profiles (
            id UUID PRIMARY KEY,
            email TEXT NOT NULL UNIQUE,
            full_name TEXT NOT NULL DEFAULT ''
        );`,
		`CREATE TABLE IF NOT EXISTS listings (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            owner_id UUID NOT NULL REFERENCES profiles(id),
            title TEXT NOT NULL DEFAULT ''
        );`,
		`CREATE TABLE IF NOT EXISTS conversations_new (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            user_id UUID REFERENCES profiles(id),
            user_email TEXT NOT NULL,
            host_id UUID REFERENCES profiles(id),
            host_email TEXT NOT NULL,
            listing_id UUID REFERENCES listings(id),
            last_message TEXT NOT NULL DEFAULT '',
            last_message_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE UNIQUE INDEX IF NOT EXISTS conversations_new_pair_idx
            ON conversations_new (user_email, host_email, COALESCE(listing_id, '00000000-0000-0000-0000-000000000000'::uuid));`,
		`CREATE TABLE IF NOT EXISTS messages_new (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            seq BIGSERIAL NOT NULL,
            conversation_id UUID NOT NULL REFERENCES conversations_new(id) ON DELETE CASCADE,
            sender_id UUID NOT NULL,
            content TEXT NOT NULL DEFAULT '',
            type TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
        );`,
		`CREATE INDEX IF NOT EXISTS messages_new_conversation_idx ON messages_new (conversation_id, created_at, seq);`,
		`CREATE TABLE IF NOT EXISTS message_attachments (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            message_id UUID REFERENCES messages_new(id) ON DELETE CASCADE,
            conversation_id UUID NOT NULL REFERENCES conversations_new(id) ON DELETE CASCADE,
            uploader_id UUID NOT NULL,
            filename TEXT NOT NULL,
            file_type TEXT NOT NULL,
            file_size BIGINT NOT NULL,
            url TEXT NOT NULL,
            storage_key TEXT NOT NULL,
            thumbnail_url TEXT,
            state TEXT NOT NULL DEFAULT 'pending',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS reservations (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            exchange_type TEXT NOT NULL CHECK (exchange_type IN ('simultaneous', 'non_simultaneous')),
            initiator_id UUID NOT NULL,
            partner_id UUID NOT NULL,
            initiator_dates JSONB NOT NULL,
            partner_dates JSONB,
            initiator_details JSONB NOT NULL,
            partner_details JSONB NOT NULL,
            listing_id UUID NOT NULL REFERENCES listings(id),
            conversation_id UUID NOT NULL REFERENCES conversations_new(id),
            status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'accepted', 'rejected')),
            message_id UUID REFERENCES messages_new(id),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            responded_at TIMESTAMPTZ,
            CHECK ((exchange_type = 'non_simultaneous') = (partner_dates IS NOT NULL))
        );`,
		`CREATE INDEX IF NOT EXISTS reservations_message_idx ON reservations (message_id);`,
		`CREATE TABLE IF NOT EXISTS read_receipts (
            conversation_id UUID NOT NULL REFERENCES conversations_new(id) ON DELETE CASCADE,
            user_id UUID NOT NULL,
            last_message_id UUID NOT NULL,
            notified BOOLEAN NOT NULL DEFAULT FALSE,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY (conversation_id, user_id)
        );`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}
