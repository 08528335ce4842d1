package db

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect opens the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	database, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(database); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return database, nil
}

func runMigrations(database *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            username TEXT NOT NULL,
            display_name TEXT NOT NULL DEFAULT '',
            avatar TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'offline',
            title TEXT NOT NULL DEFAULT ''
        );`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_username_lower_idx ON users (LOWER(username));`,
		`CREATE TABLE IF NOT EXISTS channels (
            id SERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            created_by_id INT NOT NULL,
            is_group_chat BOOLEAN NOT NULL DEFAULT FALSE,
            is_private BOOLEAN NOT NULL DEFAULT FALSE
        );`,
		`CREATE UNIQUE INDEX IF NOT EXISTS channels_name_lower_idx ON channels (LOWER(name));`,
		`CREATE TABLE IF NOT EXISTS messages (
            id SERIAL PRIMARY KEY,
            content TEXT NOT NULL DEFAULT '',
            image TEXT NOT NULL DEFAULT '',
            channel_id INT,
            sender_id INT NOT NULL,
            receiver_id INT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS messages_channel_idx ON messages (channel_id) WHERE receiver_id IS NULL;`,
		`CREATE TABLE IF NOT EXISTS channel_members (
            id SERIAL PRIMARY KEY,
            channel_id INT NOT NULL,
            user_id INT NOT NULL,
            last_read_message_id INT,
            UNIQUE (channel_id, user_id)
        );`,
	}

	for _, m := range migrations {
		if _, err := database.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}
